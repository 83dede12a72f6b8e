package mindmap

import (
	"github.com/matzehuels/docmap/pkg/errors"
)

// Tree is a set of nodes from one document together with its root id.
//
// A Tree returned by the initial load is shallow: nodes at the bottom of the
// returned depth still declare ChildIDs that are not part of Nodes.
type Tree struct {
	DocumentID string `json:"document_id" bson:"document_id"`
	RootID     string `json:"root_id" bson:"root_id"`
	Nodes      []Node `json:"nodes" bson:"nodes"`
}

// Expansion is the answer to an expand request: the up-to-date node and its
// immediate children.
type Expansion struct {
	Node     Node   `json:"node" bson:"node"`
	Children []Node `json:"children" bson:"children"`
}

// Root returns the root node, or false if it is not part of the tree.
func (t *Tree) Root() (Node, bool) {
	for _, n := range t.Nodes {
		if n.ID == t.RootID {
			return n, true
		}
	}
	return Node{}, false
}

// Index returns the nodes keyed by id. Later duplicates are ignored.
func (t *Tree) Index() map[string]Node {
	idx := make(map[string]Node, len(t.Nodes))
	for _, n := range t.Nodes {
		if _, ok := idx[n.ID]; !ok {
			idx[n.ID] = n
		}
	}
	return idx
}

// Validate checks the structural invariants of a (possibly shallow) tree:
//   - the root id is set, present, and the only node without a parent
//   - ids are valid and unique
//   - every non-root node's parent is part of the tree
//   - kinds, when set, are known
//
// Children declared but absent are allowed; that is what shallow means.
func (t *Tree) Validate() error {
	if err := errors.ValidateID(t.RootID); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "root id")
	}

	seen := make(map[string]bool, len(t.Nodes))
	for _, n := range t.Nodes {
		if err := errors.ValidateID(n.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "node id %q", n.ID)
		}
		if seen[n.ID] {
			return errors.New(errors.ErrCodeInvalidFormat, "duplicate node id %s", n.ID)
		}
		seen[n.ID] = true
		if n.Kind != "" && !n.Kind.Valid() {
			return errors.New(errors.ErrCodeInvalidFormat, "node %s: unknown kind %q", n.ID, n.Kind)
		}
	}

	if !seen[t.RootID] {
		return errors.New(errors.ErrCodeInvalidFormat, "root %s not among nodes", t.RootID)
	}

	for _, n := range t.Nodes {
		switch {
		case n.ID == t.RootID && n.ParentID != "":
			return errors.New(errors.ErrCodeInvalidFormat, "root %s has parent %s", n.ID, n.ParentID)
		case n.ID != t.RootID && n.ParentID == "":
			return errors.New(errors.ErrCodeInvalidFormat, "node %s has no parent but is not the root", n.ID)
		case n.ParentID != "" && !seen[n.ParentID]:
			return errors.New(errors.ErrCodeInvalidFormat, "node %s references unknown parent %s", n.ID, n.ParentID)
		}
	}
	return nil
}

// Subtree returns the root plus every node reachable within depth levels,
// walking ChildIDs in declared order. Depth 0 returns only the root.
//
// Full content is kept on the root only; deeper nodes are stripped, mirroring
// what the document service sends for shallow loads.
func (t *Tree) Subtree(depth int) Tree {
	idx := t.Index()
	out := Tree{DocumentID: t.DocumentID, RootID: t.RootID}

	var walk func(id string, level int)
	walk = func(id string, level int) {
		n, ok := idx[id]
		if !ok {
			return
		}
		if level == 0 {
			out.Nodes = append(out.Nodes, n.Clone())
		} else {
			out.Nodes = append(out.Nodes, n.WithoutContent())
		}
		if level >= depth {
			return
		}
		for _, cid := range n.ChildIDs {
			walk(cid, level+1)
		}
	}
	walk(t.RootID, 0)
	return out
}
