package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docmap/internal/server"
	"github.com/matzehuels/docmap/pkg/config"
	"github.com/matzehuels/docmap/pkg/core/render"
	"github.com/matzehuels/docmap/pkg/docservice"
	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/storage"
	"github.com/matzehuels/docmap/pkg/storage/memory"
)

const treeJSON = `{
  "document_id": "report",
  "root_id": "r",
  "nodes": [
    {"id": "r", "title": "Report", "node_type": "root", "children_ids": ["a", "b"], "has_children": true},
    {"id": "a", "parent_id": "r", "title": "Intro", "node_type": "section", "depth": 1},
    {"id": "b", "parent_id": "r", "title": "Method", "node_type": "section", "depth": 1, "children_ids": ["c"], "has_children": true},
    {"id": "c", "parent_id": "b", "title": "Data", "node_type": "subsection", "depth": 2}
  ]
}`

// sandbox points every docmap directory into a temp dir and returns it.
func sandbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, key := range []string{"DOCMAP_STORAGE", "DOCMAP_DOCUMENTS_DIR", "DOCMAP_SERVER_URL", "DOCMAP_ADDR"} {
		t.Setenv(key, "")
	}
	return dir
}

// execute runs the CLI with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	prev := stdout
	stdout = &out
	t.Cleanup(func() { stdout = prev })

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("docmap %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func writeTree(t *testing.T, dir string) (path, hash string) {
	t.Helper()
	path = filepath.Join(dir, "report.json")
	if err := os.WriteFile(path, []byte(treeJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, storage.ContentHash([]byte(treeJSON))
}

func TestDocumentLifecycle(t *testing.T) {
	dir := sandbox(t)
	path, hash := writeTree(t, dir)

	out := mustExecute(t, "import", path, "--pages", "9")
	if !strings.Contains(out, "Imported") || !strings.Contains(out, hash) {
		t.Errorf("import output:\n%s", out)
	}

	out = mustExecute(t, "documents")
	for _, want := range []string{hash, "report", "report.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("documents output missing %q:\n%s", want, out)
		}
	}

	layoutPath := filepath.Join(dir, "report.layout.json")
	mustExecute(t, "layout", "report", "--depth", "-1", "-o", layoutPath)
	sc, err := render.ReadSceneFile(layoutPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Nodes) != 4 || len(sc.Edges) != 3 {
		t.Errorf("scene has %d nodes and %d edges, want 4 and 3", len(sc.Nodes), len(sc.Edges))
	}

	out = mustExecute(t, "documents", "audit", hash)
	for _, want := range []string{"document_created", "mindmap_saved", "mindmap_loaded"} {
		if !strings.Contains(out, want) {
			t.Errorf("audit output missing %q:\n%s", want, out)
		}
	}

	out = mustExecute(t, "delete", hash)
	if !strings.Contains(out, "Deleted") {
		t.Errorf("delete output:\n%s", out)
	}
	out = mustExecute(t, "delete", hash)
	if !strings.Contains(out, "No document") {
		t.Errorf("second delete output:\n%s", out)
	}
	if out := mustExecute(t, "documents"); !strings.Contains(out, "No documents") {
		t.Errorf("documents after delete:\n%s", out)
	}
}

func TestLayoutDepth(t *testing.T) {
	dir := sandbox(t)
	path, _ := writeTree(t, dir)
	mustExecute(t, "import", path)

	out := filepath.Join(dir, "shallow.json")
	mustExecute(t, "layout", "report", "--depth", "0", "-o", out)
	sc, err := render.ReadSceneFile(out)
	if err != nil {
		t.Fatal(err)
	}
	// The root is always expanded on load.
	if len(sc.Nodes) != 3 {
		t.Errorf("visible = %d, want 3", len(sc.Nodes))
	}
	if _, ok := sc.Node("c"); ok {
		t.Error("c should stay hidden below a collapsed parent")
	}
}

func TestLayoutUnknownDocument(t *testing.T) {
	sandbox(t)
	_, err := execute(t, "layout", "missing")
	if !errors.Is(err, errors.ErrCodeDocumentNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestRenderCachesArtifacts(t *testing.T) {
	dir := sandbox(t)
	path, _ := writeTree(t, dir)
	mustExecute(t, "import", path)
	layoutPath := filepath.Join(dir, "report.layout.json")
	mustExecute(t, "layout", "report", "-o", layoutPath)

	out := mustExecute(t, "render", layoutPath, "-f", "dot,json")
	if !strings.Contains(out, "fresh") {
		t.Errorf("first render should be fresh:\n%s", out)
	}
	dot, err := os.ReadFile(filepath.Join(dir, "report.dot"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(dot, []byte("digraph")) {
		t.Errorf("dot output:\n%s", dot)
	}
	if _, err := os.Stat(filepath.Join(dir, "report.json")); err != nil {
		t.Errorf("json artifact: %v", err)
	}

	out = mustExecute(t, "render", layoutPath, "-f", "dot,json")
	if !strings.Contains(out, "cached") {
		t.Errorf("second render should hit the cache:\n%s", out)
	}
	out = mustExecute(t, "render", layoutPath, "-f", "dot", "--no-cache", "-o", filepath.Join(dir, "plain.dot"))
	if !strings.Contains(out, "fresh") {
		t.Errorf("--no-cache render should be fresh:\n%s", out)
	}

	if out := mustExecute(t, "cache", "clear"); !strings.Contains(out, "Cleared 2") {
		t.Errorf("cache clear output:\n%s", out)
	}
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	sandbox(t)
	if _, err := execute(t, "render", "x.layout.json", "-f", "gif"); err == nil {
		t.Error("expected an error for format gif")
	}
}

func TestLayoutOverHTTP(t *testing.T) {
	dir := sandbox(t)
	logger := log.New(io.Discard)
	svc := docservice.NewService(memory.NewStore(), logger)
	tr, err := mindmap.UnmarshalTree([]byte(treeJSON))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Import(context.Background(), docservice.ImportRequest{Tree: tr}, []byte(treeJSON)); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(server.New(svc, logger, config.Default().Server))
	defer srv.Close()

	out := filepath.Join(dir, "remote.json")
	mustExecute(t, "layout", "report", "--server", srv.URL, "--depth", "-1", "-o", out)
	sc, err := render.ReadSceneFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Nodes) != 4 {
		t.Errorf("visible = %d, want 4", len(sc.Nodes))
	}

	if out := mustExecute(t, "documents", "--server", srv.URL); !strings.Contains(out, "report") {
		t.Errorf("remote documents:\n%s", out)
	}
}

func TestConfigCommands(t *testing.T) {
	dir := sandbox(t)

	out := mustExecute(t, "config", "path")
	want := filepath.Join(dir, "config", "docmap", "config.toml")
	if strings.TrimSpace(out) != want {
		t.Errorf("config path = %q, want %q", strings.TrimSpace(out), want)
	}

	mustExecute(t, "config", "init")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("config init did not write %s: %v", want, err)
	}

	out = mustExecute(t, "config", "show")
	for _, section := range []string{"[server]", "[storage]", "[client]", "[layout]"} {
		if !strings.Contains(out, section) {
			t.Errorf("config show missing %s:\n%s", section, out)
		}
	}
}

func TestBadConfigFails(t *testing.T) {
	dir := sandbox(t)
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[storage]\nbackend = \"floppy\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "--config", path, "documents")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}
