package render

import (
	"github.com/matzehuels/docmap/pkg/core/layout"
	"github.com/matzehuels/docmap/pkg/core/tree"
	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
)

// NodeRecord is everything a renderer needs to draw one node box.
type NodeRecord struct {
	ID          string       `json:"id"`
	X           float64      `json:"x"` // Box center
	Y           float64      `json:"y"`
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	Depth       int          `json:"depth"`
	Kind        mindmap.Kind `json:"node_type"`
	Title       string       `json:"title"`
	Summary     string       `json:"summary"`
	KeyConcepts []string     `json:"key_concepts,omitempty"`
	Pages       string       `json:"pages,omitempty"`
	Expandable  bool         `json:"expandable"`
	Expanded    bool         `json:"expanded"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
	ErrorCode   errors.Code  `json:"error_code,omitempty"`
}

// EdgeRecord connects two visible nodes, with both endpoints' centers.
type EdgeRecord struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	FromX float64 `json:"from_x"`
	FromY float64 `json:"from_y"`
	ToX   float64 `json:"to_x"`
	ToY   float64 `json:"to_y"`
}

// Scene is the drawable projection of one store version.
type Scene struct {
	DocumentID string          `json:"document_id"`
	RootID     string          `json:"root_id"`
	Version    uint64          `json:"version"`
	Geometry   layout.Geometry `json:"geometry"`
	Bounds     layout.Rect     `json:"bounds"`
	Nodes      []NodeRecord    `json:"nodes"`
	Edges      []EdgeRecord    `json:"edges"`
}

// Node returns the record for id.
func (s *Scene) Node(id string) (NodeRecord, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeRecord{}, false
}

// Project builds the scene for v laid out by l, reading content from s.
// Nodes appear in the view's pre-order; nodes missing from either the
// snapshot or the layout are skipped along with their edges.
func Project(s tree.Snapshot, v tree.View, l layout.Layout) Scene {
	sc := Scene{
		DocumentID: s.DocumentID,
		RootID:     v.RootID,
		Version:    s.Version,
		Geometry:   l.Geometry,
		Bounds:     l.Bounds(),
		Nodes:      make([]NodeRecord, 0, v.Len()),
		Edges:      make([]EdgeRecord, 0, len(v.Edges)),
	}

	drawn := make(map[string]bool, v.Len())
	for _, id := range v.Order {
		n, ok := s.Node(id)
		if !ok {
			continue
		}
		p, ok := l.Position(id)
		if !ok {
			continue
		}
		drawn[id] = true
		rec := NodeRecord{
			ID:          id,
			X:           p.X,
			Y:           p.Y,
			Width:       l.Geometry.NodeWidth,
			Height:      l.Geometry.NodeHeight,
			Depth:       v.Depths[id],
			Kind:        n.Kind,
			Title:       n.DisplayTitle(),
			Summary:     n.Summary,
			KeyConcepts: n.KeyConcepts,
			Pages:       n.Pages(),
			Expandable:  n.Expandable(),
			Expanded:    s.IsExpanded(id),
			Loading:     s.IsLoading(id),
		}
		if err := s.Failure(id); err != nil {
			rec.Error = errors.UserMessage(err)
			rec.ErrorCode = errors.GetCode(err)
		}
		sc.Nodes = append(sc.Nodes, rec)
	}

	for _, e := range v.Edges {
		if !drawn[e.From] || !drawn[e.To] {
			continue
		}
		from, _ := l.Position(e.From)
		to, _ := l.Position(e.To)
		sc.Edges = append(sc.Edges, EdgeRecord{
			From: e.From, To: e.To,
			FromX: from.X, FromY: from.Y,
			ToX: to.X, ToY: to.Y,
		})
	}
	return sc
}
