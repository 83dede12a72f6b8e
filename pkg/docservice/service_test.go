package docservice

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/storage"
	"github.com/matzehuels/docmap/pkg/storage/memory"
)

func newService(t *testing.T) (*Service, storage.DocumentInfo) {
	t.Helper()
	svc := NewService(memory.NewStore(), log.New(io.Discard))
	info, err := svc.Import(context.Background(), ImportRequest{
		Tree:             sampleTree(),
		OriginalFilename: "report.pdf",
		PageCount:        12,
	}, []byte("pdf bytes"))
	if err != nil {
		t.Fatal(err)
	}
	return svc, info
}

func TestServiceImport(t *testing.T) {
	svc, info := newService(t)
	if info.ContentHash != storage.ContentHash([]byte("pdf bytes")) {
		t.Errorf("hash = %s", info.ContentHash)
	}
	if info.NodeCount != 5 || info.PageCount != 12 || info.OriginalFilename != "report.pdf" {
		t.Errorf("info = %+v", info)
	}
	if _, err := svc.Tree("report", 1); err != nil {
		t.Errorf("imported tree not indexed: %v", err)
	}
}

func TestServiceImportAssignsDocumentID(t *testing.T) {
	svc := NewService(memory.NewStore(), log.New(io.Discard))
	tr := sampleTree()
	tr.DocumentID = ""
	info, err := svc.Import(context.Background(), ImportRequest{Tree: tr}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(info.DocumentID) != 36 {
		t.Errorf("document id = %q, want a uuid", info.DocumentID)
	}
}

func TestServiceRestore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	first := NewService(store, log.New(io.Discard))
	if _, err := first.Import(ctx, ImportRequest{Tree: sampleTree()}, []byte("x")); err != nil {
		t.Fatal(err)
	}

	second := NewService(store, log.New(io.Discard))
	n, err := second.Restore(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Restore = %d, %v", n, err)
	}
	if _, err := second.Node("d"); err != nil {
		t.Errorf("restored node: %v", err)
	}
}

func TestServiceLoadByDocumentID(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	first := NewService(store, log.New(io.Discard))
	info, err := first.Import(ctx, ImportRequest{Tree: sampleTree()}, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}

	second := NewService(store, log.New(io.Discard))
	resp, err := second.LoadByDocumentID(ctx, "report")
	if err != nil {
		t.Fatal(err)
	}
	if resp.ContentHash != info.ContentHash || resp.NodeCount != 5 {
		t.Errorf("LoadByDocumentID = %+v", resp)
	}
	if second.Index.Len() != 1 {
		t.Errorf("indexed %d documents, want 1", second.Index.Len())
	}

	_, err = second.LoadByDocumentID(ctx, "missing")
	if !errors.Is(err, errors.ErrCodeDocumentNotFound) {
		t.Errorf("missing document: %v", err)
	}
}

func TestServiceUpdateNode(t *testing.T) {
	ctx := context.Background()
	svc, info := newService(t)
	title := "Introduction"

	n, err := svc.UpdateNode(ctx, "a", NodePatch{Title: &title, KeyConcepts: []string{"scope"}})
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != title || n.KeyConcepts[0] != "scope" || n.FullContent != "intro text" {
		t.Errorf("updated = %+v", n)
	}

	stored, err := svc.Store.Load(ctx, info.ContentHash)
	if err != nil {
		t.Fatal(err)
	}
	for _, sn := range stored.Nodes {
		if sn.ID == "a" && sn.Title != title {
			t.Errorf("stored title = %q", sn.Title)
		}
	}
	audit, _ := svc.Audit(ctx, info.ContentHash)
	if len(audit) == 0 || audit[1].Action != storage.ActionMindMapUpdated {
		t.Errorf("audit = %+v", audit)
	}

	if _, err := svc.UpdateNode(ctx, "a", NodePatch{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty patch: %v", err)
	}
	if _, err := svc.UpdateNode(ctx, "zz", NodePatch{Title: &title}); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("unknown node: %v", err)
	}
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	svc, info := newService(t)
	if err := svc.Delete(ctx, info.ContentHash); err != nil {
		t.Fatal(err)
	}
	if svc.Index.Len() != 0 {
		t.Error("index should be empty after delete")
	}
	if err := svc.Delete(ctx, info.ContentHash); !errors.Is(err, errors.ErrCodeDocumentNotFound) {
		t.Errorf("second delete: %v", err)
	}
}
