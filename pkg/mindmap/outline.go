package mindmap

import (
	"github.com/google/uuid"
)

// Outline is the nested authoring format accepted by import: the shape a
// structure extractor produces, without ids or parent links.
type Outline struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	FullContent string    `json:"full_content,omitempty"`
	KeyConcepts []string  `json:"key_concepts,omitempty"`
	PageStart   *int      `json:"page_start,omitempty"`
	PageEnd     *int      `json:"page_end,omitempty"`
	Children    []Outline `json:"children,omitempty"`
}

// IDFunc generates node ids for [FromOutline].
type IDFunc func() string

// NewUUID is the default IDFunc.
func NewUUID() string { return uuid.NewString() }

// FromOutline flattens an outline into a Tree. Nodes are emitted in pre-order,
// kinds follow depth, and ids come from newID (uuid v4 when nil).
func FromOutline(documentID string, o Outline, newID IDFunc) Tree {
	if newID == nil {
		newID = NewUUID
	}
	t := Tree{DocumentID: documentID}

	var build func(o Outline, parentID string, depth int) string
	build = func(o Outline, parentID string, depth int) string {
		id := newID()
		title := o.Title
		if title == "" {
			title = "Untitled"
		}
		idx := len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{
			ID:          id,
			DocumentID:  documentID,
			ParentID:    parentID,
			Title:       title,
			Summary:     o.Summary,
			FullContent: o.FullContent,
			Kind:        KindForDepth(depth),
			Depth:       depth,
			ChildIDs:    []string{},
			KeyConcepts: append([]string{}, o.KeyConcepts...),
			HasChildren: len(o.Children) > 0,
			PageStart:   o.PageStart,
			PageEnd:     o.PageEnd,
		})
		for _, c := range o.Children {
			cid := build(c, id, depth+1)
			t.Nodes[idx].ChildIDs = append(t.Nodes[idx].ChildIDs, cid)
		}
		return id
	}
	t.RootID = build(o, "", 0)
	return t
}
