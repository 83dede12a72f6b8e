package tree

import (
	"slices"

	"github.com/matzehuels/docmap/pkg/mindmap"
)

// View is the visible subset of a snapshot.
type View struct {
	RootID   string
	Order    []string            // pre-order, root first
	Children map[string][]string // visible children per visible parent, in display order
	Edges    []mindmap.Edge      // one per visible non-root node
	Depths   map[string]int      // visible depth, root is 0

	visible map[string]bool
}

// Contains reports whether id is visible.
func (v View) Contains(id string) bool { return v.visible[id] }

// Len returns the number of visible nodes.
func (v View) Len() int { return len(v.Order) }

// Empty reports whether nothing is visible.
func (v View) Empty() bool { return len(v.Order) == 0 }

// Resolve derives the visible tree from a snapshot.
//
// A node is visible iff it is the root, or its parent is visible and
// expanded. Siblings appear in the parent's declared ChildIDs order;
// children that name the parent but were never declared follow, sorted by id.
func Resolve(s Snapshot) View {
	v := View{
		RootID:   s.RootID,
		Children: make(map[string][]string),
		Depths:   make(map[string]int),
		visible:  make(map[string]bool),
	}
	if _, ok := s.Nodes[s.RootID]; !ok || s.RootID == "" {
		return v
	}

	r := resolver{s: s, memo: make(map[string]state, len(s.Nodes))}

	grouped := make(map[string][]string)
	for id, n := range s.Nodes {
		if id == s.RootID || !r.visible(id) {
			continue
		}
		grouped[n.ParentID] = append(grouped[n.ParentID], id)
	}

	for parent, ids := range grouped {
		v.Children[parent] = orderChildren(s.Nodes[parent], ids)
	}

	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		v.visible[id] = true
		v.Depths[id] = depth
		v.Order = append(v.Order, id)
		for _, cid := range v.Children[id] {
			v.Edges = append(v.Edges, mindmap.Edge{From: id, To: cid})
			walk(cid, depth+1)
		}
	}
	walk(s.RootID, 0)
	return v
}

type state uint8

const (
	unknown state = iota
	pending
	shown
	hidden
)

type resolver struct {
	s    Snapshot
	memo map[string]state
}

func (r *resolver) visible(id string) bool {
	switch r.memo[id] {
	case shown:
		return true
	case hidden, pending:
		// pending means a parent cycle; treat as hidden
		return false
	}
	r.memo[id] = pending

	ok := false
	if id == r.s.RootID {
		ok = true
	} else if n, found := r.s.Nodes[id]; found && n.ParentID != "" {
		ok = r.s.Expanded[n.ParentID] && r.visible(n.ParentID)
	}

	if ok {
		r.memo[id] = shown
	} else {
		r.memo[id] = hidden
	}
	return ok
}

func orderChildren(parent mindmap.Node, ids []string) []string {
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, cid := range parent.ChildIDs {
		if present[cid] {
			out = append(out, cid)
			delete(present, cid)
		}
	}
	var rest []string
	for id := range present {
		rest = append(rest, id)
	}
	slices.Sort(rest)
	return append(out, rest...)
}
