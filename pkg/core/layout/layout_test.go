package layout

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/matzehuels/docmap/pkg/core/tree"
	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"pgregory.net/rapid"
)

const eps = 1e-6

// fatalf is satisfied by both *testing.T and *rapid.T.
type fatalf interface {
	Helper()
	Fatalf(format string, args ...any)
}

// buildView inserts edges (child -> parent, in order) and expands every
// node listed in expand.
func buildView(t fatalf, edges [][2]string, expand ...string) tree.View {
	t.Helper()
	children := make(map[string][]string)
	for _, e := range edges {
		if e[1] != "" {
			children[e[1]] = append(children[e[1]], e[0])
		}
	}
	s := tree.NewStore()
	err := s.Update(func(tx *tree.Tx) error {
		for _, e := range edges {
			n := mindmap.Node{ID: e[0], ParentID: e[1], ChildIDs: children[e[0]], HasChildren: len(children[e[0]]) > 0}
			if _, err := tx.Insert(n); err != nil {
				return err
			}
		}
		for _, id := range expand {
			if err := tx.SetExpanded(id, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return tree.Resolve(s.Snapshot())
}

func TestComputeExampleScenario(t *testing.T) {
	v := buildView(t, [][2]string{{"root", ""}, {"A", "root"}, {"B", "root"}, {"C", "B"}}, "root", "B")
	l := Compute(v, DefaultGeometry())

	want := map[string]Position{
		"root": {0, 0},
		"A":    {-145, 140},
		"B":    {145, 140},
		"C":    {145, 280},
	}
	for id, p := range want {
		got, ok := l.Position(id)
		if !ok {
			t.Fatalf("%s not laid out", id)
		}
		if math.Abs(got.X-p.X) > eps || math.Abs(got.Y-p.Y) > eps {
			t.Errorf("%s at %+v, want %+v", id, got, p)
		}
	}
	if w := l.SubtreeWidth("root"); w != 540 {
		t.Errorf("root width = %g, want 540", w)
	}
	if w := l.SubtreeWidth("B"); w != 250 {
		t.Errorf("B width = %g, want 250", w)
	}
}

func TestComputeCollapsedRoot(t *testing.T) {
	v := buildView(t, [][2]string{{"root", ""}, {"A", "root"}})
	l := Compute(v, DefaultGeometry())
	if len(l.Positions) != 1 {
		t.Fatalf("positions = %v, want root only", l.Positions)
	}
	b := l.Bounds()
	if b.Width() != DefaultNodeWidth || b.Height() != DefaultNodeHeight {
		t.Errorf("bounds = %+v", b)
	}
}

func TestComputeEmpty(t *testing.T) {
	l := Compute(tree.View{}, DefaultGeometry())
	if len(l.Positions) != 0 || l.Bounds() != (Rect{}) {
		t.Errorf("empty layout = %+v", l)
	}
}

func TestComputeSubtreeWidths(t *testing.T) {
	tests := []struct {
		name     string
		children int
		want     float64
	}{
		{"leaf", 0, 250},
		{"one child", 1, 250},
		{"two children", 2, 540},
		{"three children", 3, 830},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges := [][2]string{{"r", ""}}
			for i := range tt.children {
				edges = append(edges, [2]string{fmt.Sprintf("c%d", i), "r"})
			}
			l := Compute(buildView(t, edges, "r"), DefaultGeometry())
			if got := l.SubtreeWidth("r"); got != tt.want {
				t.Errorf("width = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestGeometryValidate(t *testing.T) {
	tests := []struct {
		name    string
		g       Geometry
		wantErr bool
	}{
		{"default", DefaultGeometry(), false},
		{"zero spacing", Geometry{NodeWidth: 10, NodeHeight: 10}, false},
		{"zero width", Geometry{NodeHeight: 10}, true},
		{"negative gap", Geometry{NodeWidth: 10, NodeHeight: 10, VerticalSpacing: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("code = %s, want INVALID_CONFIG", errors.GetCode(err))
			}
		})
	}
}

func randomLayout(t *rapid.T) (tree.View, Layout) {
	n := rapid.IntRange(1, 40).Draw(t, "n")
	edges := [][2]string{{"n0", ""}}
	for i := 1; i < n; i++ {
		p := rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("parent%d", i))
		edges = append(edges, [2]string{fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", p)})
	}
	var expand []string
	for i := range n {
		if rapid.Bool().Draw(t, fmt.Sprintf("expand%d", i)) {
			expand = append(expand, fmt.Sprintf("n%d", i))
		}
	}
	g := Geometry{
		NodeWidth:         float64(rapid.IntRange(1, 300).Draw(t, "w")),
		NodeHeight:        float64(rapid.IntRange(1, 100).Draw(t, "h")),
		HorizontalSpacing: float64(rapid.IntRange(0, 80).Draw(t, "hs")),
		VerticalSpacing:   float64(rapid.IntRange(0, 80).Draw(t, "vs")),
	}
	v := buildView(t, edges, expand...)
	return v, Compute(v, g)
}

func TestComputeNoOverlapProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v, l := randomLayout(t)
		g := l.Geometry

		if len(l.Positions) != v.Len() {
			t.Fatalf("%d positions for %d visible nodes", len(l.Positions), v.Len())
		}
		if p := l.Positions[v.RootID]; p != (Position{}) {
			t.Fatalf("root at %+v", p)
		}

		rows := make(map[float64][]float64)
		for _, id := range v.Order {
			p := l.Positions[id]
			if want := float64(v.Depths[id]) * g.RowHeight(); math.Abs(p.Y-want) > eps {
				t.Fatalf("%s y=%g, want %g", id, p.Y, want)
			}
			rows[p.Y] = append(rows[p.Y], p.X)
		}
		for y, xs := range rows {
			slices.Sort(xs)
			for i := 1; i < len(xs); i++ {
				if gap := xs[i] - xs[i-1]; gap < g.NodeWidth+g.HorizontalSpacing-eps {
					t.Fatalf("row y=%g: centers %g and %g only %g apart", y, xs[i-1], xs[i], gap)
				}
			}
		}
	})
}

func TestComputeCenteringProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v, l := randomLayout(t)
		for parent, children := range v.Children {
			first, last := children[0], children[len(children)-1]
			left := l.Positions[first].X - l.Widths[first]/2
			right := l.Positions[last].X + l.Widths[last]/2
			if mid := (left + right) / 2; math.Abs(mid-l.Positions[parent].X) > eps {
				t.Fatalf("%s at x=%g, children span centered at %g", parent, l.Positions[parent].X, mid)
			}
		}
	})
}
