package tree

import "github.com/matzehuels/docmap/pkg/mindmap"

// Snapshot is an immutable copy of a [Store] taken at one version.
// Mutating a snapshot's maps has no effect on the store.
type Snapshot struct {
	Version    uint64
	DocumentID string
	RootID     string
	Nodes      map[string]mindmap.Node
	Expanded   map[string]bool
	Loading    map[string]bool
	Failures   map[string]error
}

// Node returns the node with the given id.
func (s Snapshot) Node(id string) (mindmap.Node, bool) {
	n, ok := s.Nodes[id]
	return n, ok
}

// Len returns the number of known nodes.
func (s Snapshot) Len() int { return len(s.Nodes) }

// IsExpanded reports whether id is marked expanded.
func (s Snapshot) IsExpanded(id string) bool { return s.Expanded[id] }

// IsLoading reports whether a fetch for id was in flight.
func (s Snapshot) IsLoading(id string) bool { return s.Loading[id] }

// Failure returns the recorded error for id, if any.
func (s Snapshot) Failure(id string) error { return s.Failures[id] }

// ChildrenPresent reports whether every declared child of id is known.
func (s Snapshot) ChildrenPresent(id string) bool {
	n, ok := s.Nodes[id]
	if !ok {
		return false
	}
	if n.HasChildren && len(n.ChildIDs) == 0 {
		return false
	}
	for _, cid := range n.ChildIDs {
		if _, ok := s.Nodes[cid]; !ok {
			return false
		}
	}
	return true
}
