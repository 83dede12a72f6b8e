// Package storagetest holds the behavior shared by every storage backend.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/storage"
)

// Sample returns a small valid document: root -> a, b.
func Sample(contentHash, documentID string) *storage.PersistedMindMap {
	t := mindmap.Tree{
		DocumentID: documentID,
		RootID:     documentID + "-root",
		Nodes: []mindmap.Node{
			{ID: documentID + "-root", Title: "Root", Kind: mindmap.KindRoot, ChildIDs: []string{documentID + "-a", documentID + "-b"}, HasChildren: true, FullContent: "everything"},
			{ID: documentID + "-a", ParentID: documentID + "-root", Title: "A", Kind: mindmap.KindSection, Depth: 1, KeyConcepts: []string{"alpha"}},
			{ID: documentID + "-b", ParentID: documentID + "-root", Title: "B", Kind: mindmap.KindSection, Depth: 1},
		},
	}
	m, err := storage.NewMindMap(contentHash, documentID+".pdf", 3, t, time.Now())
	if err != nil {
		panic(err)
	}
	return m
}

// Run exercises a backend. newStore must return an empty store; it is
// called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	open := func(t *testing.T) storage.Store {
		t.Helper()
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("SaveLoad", func(t *testing.T) {
		s := open(t)
		want := Sample("0123456789abcdef", "doc1")
		if err := s.Save(ctx, want); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := s.Load(ctx, want.ContentHash)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Version != storage.FormatVersion || got.DocumentID != "doc1" || got.RootNodeID != "doc1-root" {
			t.Errorf("Load = %+v", got)
		}
		if len(got.Nodes) != 3 || got.Nodes[0].FullContent != "everything" || got.Nodes[1].KeyConcepts[0] != "alpha" {
			t.Errorf("nodes = %+v", got.Nodes)
		}
		if got.PageCount != 3 || got.OriginalFilename != "doc1.pdf" {
			t.Errorf("metadata = %d, %q", got.PageCount, got.OriginalFilename)
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		s := open(t)
		_, err := s.Load(ctx, "ffffffffffffffff")
		if !errors.Is(err, errors.ErrCodeDocumentNotFound) {
			t.Errorf("err = %v, want DOCUMENT_NOT_FOUND", err)
		}
	})

	t.Run("InvalidHash", func(t *testing.T) {
		s := open(t)
		for _, h := range []string{"", "../../etc/passwd", "0123456789ABCDEF", "0123456789abcdef0"} {
			if _, err := s.Load(ctx, h); !errors.Is(err, errors.ErrCodeInvalidPath) {
				t.Errorf("Load(%q) err = %v, want INVALID_PATH", h, err)
			}
			if err := s.Delete(ctx, h); !errors.Is(err, errors.ErrCodeInvalidPath) {
				t.Errorf("Delete(%q) err = %v, want INVALID_PATH", h, err)
			}
		}
	})

	t.Run("UpdateNodes", func(t *testing.T) {
		s := open(t)
		m := Sample("1111111111111111", "doc2")
		if err := s.Save(ctx, m); err != nil {
			t.Fatal(err)
		}
		changed := m.Nodes[1]
		changed.Summary = "now summarized"
		added := mindmap.Node{ID: "doc2-c", ParentID: "doc2-a", Title: "C", Kind: mindmap.KindSubsection, Depth: 2}
		if err := s.UpdateNodes(ctx, m.ContentHash, []mindmap.Node{changed, added}); err != nil {
			t.Fatalf("UpdateNodes: %v", err)
		}

		got, err := s.Load(ctx, m.ContentHash)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Nodes) != 4 || got.Nodes[1].Summary != "now summarized" || got.Nodes[3].ID != "doc2-c" {
			t.Errorf("nodes after update = %+v", got.Nodes)
		}
		if !got.LastModified.After(got.CreatedAt) && !got.LastModified.Equal(got.CreatedAt) {
			t.Errorf("last_modified %v before created_at %v", got.LastModified, got.CreatedAt)
		}

		if err := s.UpdateNodes(ctx, "2222222222222222", nil); !errors.Is(err, errors.ErrCodeDocumentNotFound) {
			t.Errorf("update missing: err = %v", err)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := open(t)
		older := Sample("aaaaaaaaaaaaaaaa", "old")
		older.LastModified = time.Now().Add(-time.Hour).UTC()
		newer := Sample("bbbbbbbbbbbbbbbb", "new")
		for _, m := range []*storage.PersistedMindMap{older, newer} {
			if err := s.Save(ctx, m); err != nil {
				t.Fatal(err)
			}
		}
		infos, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(infos) != 2 || infos[0].DocumentID != "new" || infos[1].DocumentID != "old" {
			t.Fatalf("List = %+v", infos)
		}
		if infos[0].NodeCount != 3 || infos[0].ContentHash != "bbbbbbbbbbbbbbbb" {
			t.Errorf("info = %+v", infos[0])
		}
	})

	t.Run("Audit", func(t *testing.T) {
		s := open(t)
		m := Sample("3333333333333333", "doc3")
		if err := s.Save(ctx, m); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Load(ctx, m.ContentHash); err != nil {
			t.Fatal(err)
		}
		entries, err := s.Audit(ctx, m.ContentHash)
		if err != nil {
			t.Fatalf("Audit: %v", err)
		}
		var actions []string
		for _, e := range entries {
			actions = append(actions, e.Action)
		}
		want := []string{storage.ActionMindMapLoaded, storage.ActionMindMapSaved, storage.ActionDocumentCreated}
		if len(actions) != len(want) {
			t.Fatalf("actions = %v, want %v", actions, want)
		}
		for i := range want {
			if actions[i] != want[i] {
				t.Errorf("actions[%d] = %s, want %s", i, actions[i], want[i])
			}
		}

		none, err := s.Audit(ctx, "4444444444444444")
		if err != nil || len(none) != 0 {
			t.Errorf("audit of unknown document = %v, %v", none, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t)
		m := Sample("5555555555555555", "doc5")
		if err := s.Save(ctx, m); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, m.ContentHash); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Load(ctx, m.ContentHash); !errors.Is(err, errors.ErrCodeDocumentNotFound) {
			t.Errorf("load after delete: err = %v", err)
		}
		if err := s.Delete(ctx, m.ContentHash); !errors.Is(err, errors.ErrCodeDocumentNotFound) {
			t.Errorf("second delete: err = %v", err)
		}
		if entries, _ := s.Audit(ctx, m.ContentHash); len(entries) != 0 {
			t.Errorf("audit survived delete: %v", entries)
		}
	})

	t.Run("RejectsInvalidDocument", func(t *testing.T) {
		s := open(t)
		m := Sample("6666666666666666", "doc6")
		m.Nodes[1].ParentID = "ghost"
		if err := s.Save(ctx, m); err == nil {
			t.Error("Save accepted a tree with a dangling parent")
		}
	})
}
