package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docmap/pkg/config"
	"github.com/matzehuels/docmap/pkg/core/expand"
	"github.com/matzehuels/docmap/pkg/core/tree"
	"github.com/matzehuels/docmap/pkg/docservice"
	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/storage"
	"github.com/matzehuels/docmap/pkg/storage/memory"
)

const sampleJSON = `{
  "document_id": "report",
  "root_id": "r",
  "original_filename": "report.pdf",
  "page_count": 4,
  "nodes": [
    {"id": "r", "title": "Report", "full_content": "everything", "node_type": "root", "children_ids": ["a", "b"], "has_children": true},
    {"id": "a", "parent_id": "r", "title": "Intro", "full_content": "intro", "node_type": "section", "depth": 1},
    {"id": "b", "parent_id": "r", "title": "Method", "full_content": "method", "node_type": "section", "depth": 1, "children_ids": ["c"], "has_children": true},
    {"id": "c", "parent_id": "b", "title": "Data", "node_type": "subsection", "depth": 2}
  ]
}`

type fixture struct {
	srv  *httptest.Server
	svc  *docservice.Service
	hash string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.New(io.Discard)
	svc := docservice.NewService(memory.NewStore(), logger)
	srv := httptest.NewServer(New(svc, logger, config.Default().Server))
	t.Cleanup(srv.Close)

	f := &fixture{srv: srv, svc: svc}
	resp := f.do(t, http.MethodPost, "/api/v1/documents", sampleJSON)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import status = %d", resp.StatusCode)
	}
	var info storage.DocumentInfo
	decode(t, resp, &info)
	f.hash = info.ContentHash
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/health", "")
	var body map[string]any
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" || body["documents"] != float64(1) {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
}

func TestMindMap(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		path  string
		nodes int
	}{
		{"/api/v1/mindmap/report", 3},
		{"/api/v1/mindmap/report?depth=0", 1},
		{"/api/v1/mindmap/report?depth=5", 4},
	}
	for _, tt := range tests {
		resp := f.do(t, http.MethodGet, tt.path, "")
		var tr mindmap.Tree
		decode(t, resp, &tr)
		if len(tr.Nodes) != tt.nodes || tr.RootID != "r" {
			t.Errorf("%s: %d nodes, root %q", tt.path, len(tr.Nodes), tr.RootID)
		}
		for _, n := range tr.Nodes[1:] {
			if n.FullContent != "" {
				t.Errorf("%s: %s carries content", tt.path, n.ID)
			}
		}
	}
}

func TestErrorResponses(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		method, path, body string
		status             int
		code               errors.Code
	}{
		{http.MethodGet, "/api/v1/mindmap/nope", "", http.StatusNotFound, errors.ErrCodeDocumentNotFound},
		{http.MethodGet, "/api/v1/mindmap/report?depth=x", "", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{http.MethodGet, "/api/v1/nodes/zz", "", http.StatusNotFound, errors.ErrCodeNodeNotFound},
		{http.MethodPost, "/api/v1/nodes/a/expand", `{"bogus":1}`, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{http.MethodPost, "/api/v1/documents", `{"document_id":"x","root_id":"q","nodes":[{"id":"p"}]}`, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{http.MethodGet, "/api/v1/documents/NOT-A-HASH/audit", "", http.StatusBadRequest, errors.ErrCodeInvalidPath},
		{http.MethodDelete, "/api/v1/documents/ffffffffffffffff", "", http.StatusNotFound, errors.ErrCodeDocumentNotFound},
		{http.MethodPost, "/api/v1/documents/ffffffffffffffff/load", "", http.StatusNotFound, errors.ErrCodeDocumentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := f.do(t, tt.method, tt.path, tt.body)
			var body docservice.ErrorResponse
			decode(t, resp, &body)
			if resp.StatusCode != tt.status || body.ErrorCode != string(tt.code) || body.Detail == "" {
				t.Errorf("got %d %+v, want %d %s", resp.StatusCode, body, tt.status, tt.code)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/nodes/b/expand", "")
	var exp mindmap.Expansion
	decode(t, resp, &exp)
	if exp.Node.FullContent != "method" || len(exp.Children) != 1 || exp.Children[0].ID != "c" {
		t.Errorf("default expand = %+v", exp)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/nodes/b/expand", `{"include_content": false}`)
	exp = mindmap.Expansion{}
	decode(t, resp, &exp)
	if exp.Node.FullContent != "" {
		t.Error("include_content=false should strip content")
	}
}

func TestDocumentsLifecycle(t *testing.T) {
	f := newFixture(t)

	var list docservice.DocumentsResponse
	decode(t, f.do(t, http.MethodGet, "/api/v1/documents", ""), &list)
	if len(list.Documents) != 1 || list.Documents[0].DocumentID != "report" || list.Documents[0].PageCount != 4 {
		t.Fatalf("documents = %+v", list.Documents)
	}

	resp := f.do(t, http.MethodPatch, "/api/v1/nodes/a", `{"title": "Introduction"}`)
	var n mindmap.Node
	decode(t, resp, &n)
	if resp.StatusCode != http.StatusOK || n.Title != "Introduction" {
		t.Errorf("patch = %d %+v", resp.StatusCode, n)
	}

	// Drop the index entry and restore it from storage.
	f.svc.Index.Remove("report")
	var loaded docservice.LoadResponse
	decode(t, f.do(t, http.MethodPost, "/api/v1/documents/"+f.hash+"/load", ""), &loaded)
	if loaded.DocumentID != "report" || loaded.NodeCount != 4 {
		t.Errorf("load = %+v", loaded)
	}
	var node mindmap.Node
	decode(t, f.do(t, http.MethodGet, "/api/v1/nodes/a", ""), &node)
	if node.Title != "Introduction" {
		t.Errorf("restored title = %q", node.Title)
	}

	var audit docservice.AuditResponse
	decode(t, f.do(t, http.MethodGet, "/api/v1/documents/"+f.hash+"/audit", ""), &audit)
	want := []string{storage.ActionMindMapLoaded, storage.ActionMindMapUpdated, storage.ActionMindMapSaved, storage.ActionDocumentCreated}
	if len(audit.Entries) != len(want) {
		t.Fatalf("audit = %+v", audit.Entries)
	}
	for i, a := range want {
		if audit.Entries[i].Action != a {
			t.Errorf("audit[%d] = %s, want %s", i, audit.Entries[i].Action, a)
		}
	}

	if resp := f.do(t, http.MethodDelete, "/api/v1/documents/"+f.hash, ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/nodes/a", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("node after delete = %d", resp.StatusCode)
	}
}

func TestImportOutline(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/documents", `{"title": "Notes", "children": [{"title": "One"}, {"title": "Two"}]}`)
	var info storage.DocumentInfo
	decode(t, resp, &info)
	if resp.StatusCode != http.StatusCreated || info.NodeCount != 3 {
		t.Errorf("outline import = %d %+v", resp.StatusCode, info)
	}
}

// The controller, the HTTP client and the server together: load, expand a
// node whose children were not part of the initial load, collapse.
func TestControllerOverHTTP(t *testing.T) {
	f := newFixture(t)
	client, err := docservice.NewClient(f.srv.URL, docservice.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	store := tree.NewStore()
	ctrl := expand.New(store, client, log.New(io.Discard))
	ctx := context.Background()

	if err := ctrl.Load(ctx, "report"); err != nil {
		t.Fatal(err)
	}
	if view := tree.Resolve(store.Snapshot()); view.Len() != 3 {
		t.Errorf("after load %d visible, want 3", view.Len())
	}

	out, err := ctrl.Toggle(ctx, "b")
	if err != nil || out != expand.OutcomeFetched {
		t.Fatalf("Toggle(b) = %v, %v", out, err)
	}
	view := tree.Resolve(store.Snapshot())
	if !view.Contains("c") || view.Len() != 4 {
		t.Errorf("after expand: %v", view.Order)
	}
	if n, _ := store.Node("b"); n.FullContent != "method" {
		t.Errorf("expanded node content = %q", n.FullContent)
	}

	if out, _ := ctrl.Toggle(ctx, "b"); out != expand.OutcomeCollapsed {
		t.Errorf("second toggle = %v", out)
	}
	if out, _ := ctrl.Toggle(ctx, "b"); out != expand.OutcomeExpanded {
		t.Errorf("third toggle = %v, want expanded without refetch", out)
	}

	out, err = ctrl.Toggle(ctx, "missing")
	if out != expand.OutcomeIgnored {
		t.Errorf("unknown node = %v, %v", out, err)
	}
}
