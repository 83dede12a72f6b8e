package render

import (
	"bytes"
	"testing"

	"github.com/matzehuels/docmap/pkg/core/layout"
	"github.com/matzehuels/docmap/pkg/core/tree"
	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
)

func scenarioStore(t *testing.T) *tree.Store {
	t.Helper()
	s := tree.NewStore()
	err := s.Update(func(tx *tree.Tx) error {
		tx.Reset("doc")
		if _, _, err := tx.InsertAll([]mindmap.Node{
			{ID: "root", Title: "Root", Kind: mindmap.KindRoot, ChildIDs: []string{"A", "B"}, HasChildren: true},
			{ID: "A", ParentID: "root", Title: "A", Kind: mindmap.KindSection, Summary: "first"},
			{ID: "B", ParentID: "root", Title: "B", Kind: mindmap.KindSection, ChildIDs: []string{"C"}, HasChildren: true},
			{ID: "C", ParentID: "B", Title: "", Kind: mindmap.KindSubsection},
		}); err != nil {
			return err
		}
		return tx.SetExpanded("root", true)
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func project(s *tree.Store) Scene {
	snap := s.Snapshot()
	v := tree.Resolve(snap)
	return Project(snap, v, layout.Compute(v, layout.DefaultGeometry()))
}

func TestProject(t *testing.T) {
	s := scenarioStore(t)
	sc := project(s)

	if len(sc.Nodes) != 3 || len(sc.Edges) != 2 {
		t.Fatalf("scene has %d nodes, %d edges; want 3, 2", len(sc.Nodes), len(sc.Edges))
	}
	if sc.DocumentID != "doc" || sc.RootID != "root" {
		t.Errorf("scene ids = %q, %q", sc.DocumentID, sc.RootID)
	}

	root, _ := sc.Node("root")
	if !root.Expanded || !root.Expandable || root.Width != 250 || root.Height != 80 {
		t.Errorf("root record = %+v", root)
	}
	b, _ := sc.Node("B")
	if b.Expanded || !b.Expandable || b.X != 145 || b.Y != 140 || b.Depth != 1 {
		t.Errorf("B record = %+v", b)
	}
	a, _ := sc.Node("A")
	if a.Expandable || a.Summary != "first" {
		t.Errorf("A record = %+v", a)
	}

	e := sc.Edges[1]
	if e.From != "root" || e.To != "B" || e.FromX != 0 || e.ToX != 145 || e.ToY != 140 {
		t.Errorf("edge = %+v", e)
	}
	if sc.Bounds.Width() != 540 {
		t.Errorf("bounds width = %g, want 540", sc.Bounds.Width())
	}
}

func TestProjectFlags(t *testing.T) {
	s := scenarioStore(t)
	_ = s.Update(func(tx *tree.Tx) error {
		tx.SetLoading("A", true)
		tx.SetFailure("B", errors.New(errors.ErrCodeFetchFailed, "service down"))
		return tx.SetExpanded("B", true)
	})
	sc := project(s)

	a, _ := sc.Node("A")
	if !a.Loading {
		t.Error("A not loading")
	}
	b, _ := sc.Node("B")
	if b.Error != "service down" || b.ErrorCode != errors.ErrCodeFetchFailed {
		t.Errorf("B error = %q (%s)", b.Error, b.ErrorCode)
	}
	c, ok := sc.Node("C")
	if !ok || c.Title != "C" {
		t.Errorf("C record = %+v, want title falling back to id", c)
	}
}

func TestProjectSkipsUnplacedNodes(t *testing.T) {
	s := scenarioStore(t)
	snap := s.Snapshot()
	v := tree.Resolve(snap)
	l := layout.Compute(v, layout.DefaultGeometry())
	delete(l.Positions, "B")

	sc := Project(snap, v, l)
	if _, ok := sc.Node("B"); ok {
		t.Error("unplaced node projected")
	}
	if len(sc.Edges) != 1 {
		t.Errorf("edges = %+v, want only root->A", sc.Edges)
	}
}

func TestProjectEmpty(t *testing.T) {
	sc := project(tree.NewStore())
	if len(sc.Nodes) != 0 || len(sc.Edges) != 0 {
		t.Errorf("empty store projected %+v", sc)
	}
}

func TestSceneReadWrite(t *testing.T) {
	sc := project(scenarioStore(t))

	var buf bytes.Buffer
	if err := WriteScene(sc, &buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadScene(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Nodes) != len(sc.Nodes) || got.RootID != sc.RootID || got.Geometry != sc.Geometry {
		t.Errorf("read back %+v", got)
	}

	if _, err := ReadScene(bytes.NewBufferString(`{"nodes":[{"id":"x"}]}`)); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("missing root: err = %v", err)
	}
	if _, err := ReadScene(bytes.NewBufferString(`{`)); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad json: err = %v", err)
	}
}
