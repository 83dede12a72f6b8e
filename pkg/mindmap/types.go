package mindmap

import (
	"fmt"
	"slices"
)

// =============================================================================
// Kind - Structural Depth
// =============================================================================

// Kind classifies a node by structural depth. Kinds are ordered
// (root < section < subsection < topic < detail) and only drive styling.
type Kind string

// Node kinds.
const (
	KindRoot       Kind = "root"
	KindSection    Kind = "section"
	KindSubsection Kind = "subsection"
	KindTopic      Kind = "topic"
	KindDetail     Kind = "detail"
)

var kindOrder = []Kind{KindRoot, KindSection, KindSubsection, KindTopic, KindDetail}

// Rank returns the position of k in the structural order, or -1 if k is unknown.
func (k Kind) Rank() int {
	return slices.Index(kindOrder, k)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool { return k.Rank() >= 0 }

// KindForDepth maps a structural depth to its kind. Depths past the last
// kind collapse to [KindDetail].
func KindForDepth(depth int) Kind {
	if depth <= 0 {
		return KindRoot
	}
	if depth >= len(kindOrder) {
		return KindDetail
	}
	return kindOrder[depth]
}

// ParseKind converts a string to a Kind, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown node kind %q", s)
	}
	return k, nil
}

// =============================================================================
// Node - Unit of Document Structure
// =============================================================================

// Node is one unit of document structure.
//
// ID, ParentID, ChildIDs and HasChildren are structural and drive visibility
// and layout. Everything else is display payload the engine never inspects.
type Node struct {
	ID          string   `json:"id" bson:"id"`
	DocumentID  string   `json:"document_id,omitempty" bson:"document_id,omitempty"`
	ParentID    string   `json:"parent_id,omitempty" bson:"parent_id,omitempty"` // Empty for the root
	Title       string   `json:"title" bson:"title"`
	Summary     string   `json:"summary" bson:"summary"`                               // Shown while collapsed
	FullContent string   `json:"full_content,omitempty" bson:"full_content,omitempty"` // Loaded on expansion
	Kind        Kind     `json:"node_type" bson:"node_type"`
	Depth       int      `json:"depth" bson:"depth"`
	ChildIDs    []string `json:"children_ids" bson:"children_ids"` // Declared order = layout order
	KeyConcepts []string `json:"key_concepts" bson:"key_concepts"`
	HasChildren bool     `json:"has_children" bson:"has_children"` // May be true before children are fetched
	PageStart   *int     `json:"page_start,omitempty" bson:"page_start,omitempty"`
	PageEnd     *int     `json:"page_end,omitempty" bson:"page_end,omitempty"`
}

// IsRoot returns true if the node has no parent.
func (n *Node) IsRoot() bool { return n.ParentID == "" }

// Expandable reports the server's has_children flag. A ChildIDs list alone
// does not make a node expandable.
func (n *Node) Expandable() bool { return n.HasChildren }

// DisplayTitle returns the title if set, otherwise the ID.
func (n *Node) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

// Pages formats the page range ("p. 3", "pp. 3–7") or returns "" when unknown.
func (n *Node) Pages() string {
	switch {
	case n.PageStart == nil:
		return ""
	case n.PageEnd == nil || *n.PageEnd == *n.PageStart:
		return fmt.Sprintf("p. %d", *n.PageStart)
	default:
		return fmt.Sprintf("pp. %d–%d", *n.PageStart, *n.PageEnd)
	}
}

// Clone returns a deep copy of n. Slices and page pointers are never shared
// with the original so readers can hold clones across store commits.
func (n Node) Clone() Node {
	n.ChildIDs = slices.Clone(n.ChildIDs)
	n.KeyConcepts = slices.Clone(n.KeyConcepts)
	if n.PageStart != nil {
		v := *n.PageStart
		n.PageStart = &v
	}
	if n.PageEnd != nil {
		v := *n.PageEnd
		n.PageEnd = &v
	}
	return n
}

// WithoutContent returns a clone with FullContent cleared. The document
// service strips content from children and non-root nodes of shallow loads.
func (n Node) WithoutContent() Node {
	c := n.Clone()
	c.FullContent = ""
	return c
}

// =============================================================================
// Edge - Parent/Child Relation
// =============================================================================

// Edge is a directed parent→child relation.
type Edge struct {
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
}
