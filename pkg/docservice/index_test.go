package docservice

import (
	"testing"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
)

func ids(nodes []mindmap.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newIndex(t *testing.T) *Index {
	t.Helper()
	x := NewIndex()
	if err := x.Add(sampleTree(), "0123456789abcdef"); err != nil {
		t.Fatal(err)
	}
	return x
}

func TestIndexTree(t *testing.T) {
	x := newIndex(t)
	tests := []struct {
		depth int
		want  []string
	}{
		{0, []string{"r"}},
		{1, []string{"r", "a", "b"}},
		{2, []string{"r", "a", "b", "c"}},
		{10, []string{"r", "a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		got, err := x.Tree("report", tt.depth)
		if err != nil {
			t.Fatal(err)
		}
		if !equal(ids(got.Nodes), tt.want) {
			t.Errorf("depth %d: %v, want %v", tt.depth, ids(got.Nodes), tt.want)
		}
		for _, n := range got.Nodes {
			if n.ID != "r" && n.FullContent != "" {
				t.Errorf("depth %d: %s carries full content", tt.depth, n.ID)
			}
		}
		if got.Nodes[0].FullContent != "everything" {
			t.Errorf("root lost its content")
		}
	}

	if _, err := x.Tree("missing", 1); !errors.Is(err, errors.ErrCodeDocumentNotFound) {
		t.Errorf("missing document: %v", err)
	}
	if _, err := x.Tree("report", -1); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("negative depth: %v", err)
	}
}

func TestIndexExpand(t *testing.T) {
	x := newIndex(t)

	exp, err := x.Expand("b", true)
	if err != nil {
		t.Fatal(err)
	}
	if exp.Node.ID != "b" || exp.Node.FullContent != "method text" {
		t.Errorf("node = %+v", exp.Node)
	}
	if !equal(ids(exp.Children), []string{"c"}) || exp.Children[0].FullContent != "" {
		t.Errorf("children = %+v", exp.Children)
	}

	exp, err = x.Expand("b", false)
	if err != nil {
		t.Fatal(err)
	}
	if exp.Node.FullContent != "" {
		t.Error("include_content=false should strip the node's content")
	}

	exp, err = x.Expand("d", true)
	if err != nil {
		t.Fatal(err)
	}
	if exp.Children == nil || len(exp.Children) != 0 {
		t.Errorf("leaf children = %#v, want empty slice", exp.Children)
	}

	if _, err := x.Expand("nope", true); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("unknown node: %v", err)
	}
}

func TestIndexAddReplaces(t *testing.T) {
	x := newIndex(t)
	smaller := mindmap.Tree{DocumentID: "report", RootID: "r", Nodes: []mindmap.Node{{ID: "r", Title: "Report v2"}}}
	if err := x.Add(smaller, "0123456789abcdef"); err != nil {
		t.Fatal(err)
	}
	if _, err := x.Node("d"); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("old nodes should be gone: %v", err)
	}
	n, err := x.Node("r")
	if err != nil || n.Title != "Report v2" || n.DocumentID != "report" {
		t.Errorf("Node(r) = %+v, %v", n, err)
	}
}

func TestIndexAddSameHashReplacesDocument(t *testing.T) {
	x := newIndex(t)
	other := mindmap.Tree{DocumentID: "report-2", RootID: "r2", Nodes: []mindmap.Node{{ID: "r2", Title: "Again"}}}
	if err := x.Add(other, "0123456789abcdef"); err != nil {
		t.Fatal(err)
	}
	if x.Len() != 1 {
		t.Errorf("Len = %d, want 1", x.Len())
	}
	if got, ok := x.ContentHash("report-2"); !ok || got != "0123456789abcdef" {
		t.Errorf("ContentHash = %q, %v", got, ok)
	}
}

func TestIndexRejects(t *testing.T) {
	x := newIndex(t)
	clash := mindmap.Tree{DocumentID: "other", RootID: "a", Nodes: []mindmap.Node{{ID: "a", Title: "Clash"}}}
	if err := x.Add(clash, ""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("node id clash: %v", err)
	}
	orphan := mindmap.Tree{DocumentID: "bad", RootID: "x", Nodes: []mindmap.Node{{ID: "x"}, {ID: "y", ParentID: "z"}}}
	if err := x.Add(orphan, ""); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("invalid tree: %v", err)
	}
	if err := x.Add(mindmap.Tree{RootID: "q", Nodes: []mindmap.Node{{ID: "q"}}}, ""); err == nil {
		t.Error("empty document id should be rejected")
	}
}

func TestIndexUpdate(t *testing.T) {
	x := newIndex(t)
	n, _ := x.Node("a")
	n.Title = "Introduction"
	if doc, err := x.Update(n); err != nil || doc != "report" {
		t.Fatalf("Update = %q, %v", doc, err)
	}
	if got, _ := x.Node("a"); got.Title != "Introduction" {
		t.Errorf("title = %q", got.Title)
	}

	n.ParentID = "b"
	if _, err := x.Update(n); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("structural change: %v", err)
	}
}

func TestIndexRemove(t *testing.T) {
	x := newIndex(t)
	if !x.RemoveByHash("0123456789abcdef") {
		t.Fatal("RemoveByHash should find the document")
	}
	if x.Len() != 0 || x.Remove("report") {
		t.Error("document should be gone")
	}
	if _, err := x.Node("r"); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("Node after remove: %v", err)
	}
}

func TestIndexDocuments(t *testing.T) {
	x := newIndex(t)
	if err := x.Add(mindmap.Tree{DocumentID: "aaa", RootID: "z", Nodes: []mindmap.Node{{ID: "z"}}}, ""); err != nil {
		t.Fatal(err)
	}
	docs := x.Documents()
	if len(docs) != 2 || docs[0].DocumentID != "aaa" || docs[1].NodeCount != 5 {
		t.Errorf("Documents = %+v", docs)
	}
}
