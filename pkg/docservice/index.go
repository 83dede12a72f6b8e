package docservice

import (
	"cmp"
	"slices"
	"sync"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
)

// Index holds every served document in memory, keyed by document id and by
// node id. It is safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	docs   map[string]*indexed // by document id
	nodes  map[string]string   // node id -> document id
	hashes map[string]string   // content hash -> document id
}

type indexed struct {
	contentHash string
	rootID      string
	nodes       map[string]mindmap.Node
	order       []string
}

// Summary describes one indexed document.
type Summary struct {
	DocumentID  string `json:"document_id"`
	ContentHash string `json:"content_hash,omitempty"`
	RootID      string `json:"root_id"`
	NodeCount   int    `json:"node_count"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		docs:   make(map[string]*indexed),
		nodes:  make(map[string]string),
		hashes: make(map[string]string),
	}
}

// Add validates t and indexes it, replacing any document with the same id.
// Node ids must be unique across documents.
func (x *Index) Add(t mindmap.Tree, contentHash string) error {
	if err := errors.ValidateID(t.DocumentID); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "document id")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	// A document re-imported under the same content hash replaces the old one.
	prev := ""
	if contentHash != "" {
		prev = x.hashes[contentHash]
	}
	for _, n := range t.Nodes {
		if owner, ok := x.nodes[n.ID]; ok && owner != t.DocumentID && owner != prev {
			return errors.New(errors.ErrCodeInvalidInput, "node %s already belongs to document %s", n.ID, owner)
		}
	}
	x.removeLocked(t.DocumentID)
	if prev != "" {
		x.removeLocked(prev)
	}

	doc := &indexed{
		contentHash: contentHash,
		rootID:      t.RootID,
		nodes:       make(map[string]mindmap.Node, len(t.Nodes)),
		order:       make([]string, 0, len(t.Nodes)),
	}
	for _, n := range t.Nodes {
		n = n.Clone()
		if n.DocumentID == "" {
			n.DocumentID = t.DocumentID
		}
		doc.nodes[n.ID] = n
		doc.order = append(doc.order, n.ID)
		x.nodes[n.ID] = t.DocumentID
	}
	x.docs[t.DocumentID] = doc
	if contentHash != "" {
		x.hashes[contentHash] = t.DocumentID
	}
	return nil
}

// Remove drops a document and reports whether it was indexed.
func (x *Index) Remove(documentID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.removeLocked(documentID)
}

// RemoveByHash drops the document stored under contentHash, if indexed.
func (x *Index) RemoveByHash(contentHash string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	id, ok := x.hashes[contentHash]
	if !ok {
		return false
	}
	return x.removeLocked(id)
}

func (x *Index) removeLocked(documentID string) bool {
	doc, ok := x.docs[documentID]
	if !ok {
		return false
	}
	for id := range doc.nodes {
		delete(x.nodes, id)
	}
	if doc.contentHash != "" {
		delete(x.hashes, doc.contentHash)
	}
	delete(x.docs, documentID)
	return true
}

// Tree returns the root and depth levels of descendants. Only the root
// keeps its full content.
func (x *Index) Tree(documentID string, depth int) (mindmap.Tree, error) {
	if depth < 0 {
		return mindmap.Tree{}, errors.New(errors.ErrCodeInvalidInput, "depth must not be negative")
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	doc, ok := x.docs[documentID]
	if !ok {
		return mindmap.Tree{}, errors.New(errors.ErrCodeDocumentNotFound, "document %s not found", documentID)
	}
	full := doc.tree(documentID)
	return full.Subtree(depth), nil
}

// Node returns one node with its full content.
func (x *Index) Node(nodeID string) (mindmap.Node, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n, _, err := x.lookupLocked(nodeID)
	if err != nil {
		return mindmap.Node{}, err
	}
	return n.Clone(), nil
}

// Expand returns the node and its immediate children in declared order.
// Children never carry full content; the node does when includeContent is set.
func (x *Index) Expand(nodeID string, includeContent bool) (mindmap.Expansion, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n, doc, err := x.lookupLocked(nodeID)
	if err != nil {
		return mindmap.Expansion{}, err
	}

	exp := mindmap.Expansion{Node: n.Clone(), Children: []mindmap.Node{}}
	if !includeContent {
		exp.Node.FullContent = ""
	}
	for _, cid := range n.ChildIDs {
		if c, ok := doc.nodes[cid]; ok {
			exp.Children = append(exp.Children, c.WithoutContent())
		}
	}
	return exp, nil
}

// Update replaces a node's payload. Structural fields (parent and
// children) must not change. It returns the owning document id.
func (x *Index) Update(n mindmap.Node) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	cur, doc, err := x.lookupLocked(n.ID)
	if err != nil {
		return "", err
	}
	if n.ParentID != cur.ParentID || !slices.Equal(n.ChildIDs, cur.ChildIDs) {
		return "", errors.New(errors.ErrCodeInvalidInput, "node %s: structure cannot be changed", n.ID)
	}
	doc.nodes[n.ID] = n.Clone()
	return x.nodes[n.ID], nil
}

// ContentHash returns the storage key a document was indexed with.
func (x *Index) ContentHash(documentID string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	doc, ok := x.docs[documentID]
	if !ok || doc.contentHash == "" {
		return "", false
	}
	return doc.contentHash, true
}

// Documents lists indexed documents sorted by id.
func (x *Index) Documents() []Summary {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Summary, 0, len(x.docs))
	for id, doc := range x.docs {
		out = append(out, Summary{
			DocumentID:  id,
			ContentHash: doc.contentHash,
			RootID:      doc.rootID,
			NodeCount:   len(doc.nodes),
		})
	}
	slices.SortFunc(out, func(a, b Summary) int { return cmp.Compare(a.DocumentID, b.DocumentID) })
	return out
}

// Len returns the number of indexed documents.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

func (x *Index) lookupLocked(nodeID string) (mindmap.Node, *indexed, error) {
	docID, ok := x.nodes[nodeID]
	if !ok {
		return mindmap.Node{}, nil, errors.New(errors.ErrCodeNodeNotFound, "node %s not found", nodeID)
	}
	doc := x.docs[docID]
	return doc.nodes[nodeID], doc, nil
}

func (d *indexed) tree(documentID string) mindmap.Tree {
	t := mindmap.Tree{DocumentID: documentID, RootID: d.rootID, Nodes: make([]mindmap.Node, 0, len(d.order))}
	for _, id := range d.order {
		t.Nodes = append(t.Nodes, d.nodes[id])
	}
	return t
}
