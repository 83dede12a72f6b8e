package layout

import (
	"math"

	"github.com/matzehuels/docmap/pkg/core/tree"
	"github.com/matzehuels/docmap/pkg/errors"
)

// Default geometry, in pixels.
const (
	DefaultNodeWidth         = 250
	DefaultNodeHeight        = 80
	DefaultHorizontalSpacing = 40
	DefaultVerticalSpacing   = 60
)

// Geometry holds the box size and gaps used by [Compute].
type Geometry struct {
	NodeWidth         float64 `json:"node_width" toml:"node_width"`
	NodeHeight        float64 `json:"node_height" toml:"node_height"`
	HorizontalSpacing float64 `json:"horizontal_spacing" toml:"horizontal_spacing"`
	VerticalSpacing   float64 `json:"vertical_spacing" toml:"vertical_spacing"`
}

// DefaultGeometry returns the standard box size and spacing.
func DefaultGeometry() Geometry {
	return Geometry{
		NodeWidth:         DefaultNodeWidth,
		NodeHeight:        DefaultNodeHeight,
		HorizontalSpacing: DefaultHorizontalSpacing,
		VerticalSpacing:   DefaultVerticalSpacing,
	}
}

// Validate rejects non-positive boxes and negative gaps.
func (g Geometry) Validate() error {
	switch {
	case g.NodeWidth <= 0 || g.NodeHeight <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "node size must be positive, got %gx%g", g.NodeWidth, g.NodeHeight)
	case g.HorizontalSpacing < 0 || g.VerticalSpacing < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "spacing must not be negative")
	}
	return nil
}

// RowHeight is the vertical distance between a node and its children.
func (g Geometry) RowHeight() float64 { return g.NodeHeight + g.VerticalSpacing }

// Position is the center of a node box.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Layout is the output of [Compute] for one view.
type Layout struct {
	Geometry  Geometry            `json:"geometry"`
	Positions map[string]Position `json:"positions"`
	Widths    map[string]float64  `json:"subtree_widths"`
	Order     []string            `json:"order"`
}

// Position returns the center of a visible node.
func (l Layout) Position(id string) (Position, bool) {
	p, ok := l.Positions[id]
	return p, ok
}

// SubtreeWidth returns the horizontal extent reserved for id and its
// visible descendants, or 0 if id is not laid out.
func (l Layout) SubtreeWidth(id string) float64 { return l.Widths[id] }

// Box returns the rectangle occupied by the node at p.
func (l Layout) Box(p Position) Rect {
	hw, hh := l.Geometry.NodeWidth/2, l.Geometry.NodeHeight/2
	return Rect{MinX: p.X - hw, MinY: p.Y - hh, MaxX: p.X + hw, MaxY: p.Y + hh}
}

// Bounds returns the smallest rectangle enclosing every node box.
// An empty layout has zero bounds.
func (l Layout) Bounds() Rect {
	if len(l.Positions) == 0 {
		return Rect{}
	}
	b := Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range l.Positions {
		r := l.Box(p)
		b.MinX = min(b.MinX, r.MinX)
		b.MinY = min(b.MinY, r.MinY)
		b.MaxX = max(b.MaxX, r.MaxX)
		b.MaxY = max(b.MaxY, r.MaxY)
	}
	return b
}

// Compute lays out every node in v. The view's root is placed at (0, 0).
func Compute(v tree.View, g Geometry) Layout {
	l := Layout{
		Geometry:  g,
		Positions: make(map[string]Position, v.Len()),
		Widths:    make(map[string]float64, v.Len()),
		Order:     append([]string(nil), v.Order...),
	}
	if v.Empty() {
		return l
	}
	measure(v, g, v.RootID, l.Widths)
	place(v, g, v.RootID, Position{}, l)
	return l
}

// measure fills widths for id and its visible descendants.
func measure(v tree.View, g Geometry, id string, widths map[string]float64) float64 {
	children := v.Children[id]
	if len(children) == 0 {
		widths[id] = g.NodeWidth
		return g.NodeWidth
	}
	total := g.HorizontalSpacing * float64(len(children)-1)
	for _, cid := range children {
		total += measure(v, g, cid, widths)
	}
	w := max(total, g.NodeWidth)
	widths[id] = w
	return w
}

func place(v tree.View, g Geometry, id string, at Position, l Layout) {
	l.Positions[id] = at
	children := v.Children[id]
	if len(children) == 0 {
		return
	}

	total := g.HorizontalSpacing * float64(len(children)-1)
	for _, cid := range children {
		total += l.Widths[cid]
	}

	x := at.X - total/2
	y := at.Y + g.RowHeight()
	for _, cid := range children {
		w := l.Widths[cid]
		place(v, g, cid, Position{X: x + w/2, Y: y}, l)
		x += w + g.HorizontalSpacing
	}
}
