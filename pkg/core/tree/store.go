package tree

import (
	"maps"
	"sync"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
)

// MergeResult reports what [Tx.Insert] did with a node.
type MergeResult int

const (
	// Inserted means the node was new and has been added.
	Inserted MergeResult = iota
	// Extended means the node existed and gained declared children.
	Extended
	// Ignored means the node existed and nothing changed.
	Ignored
	// Rejected means the node violated a structural invariant and was dropped.
	Rejected
)

func (r MergeResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Extended:
		return "extended"
	case Ignored:
		return "ignored"
	default:
		return "rejected"
	}
}

// Store is the authoritative state container for one document.
//
// A Store is safe for concurrent use. Only [Store.Update] mutates it; every
// other method is a read.
type Store struct {
	mu         sync.RWMutex
	documentID string
	rootID     string
	nodes      map[string]*mindmap.Node
	expanded   map[string]bool
	loading    map[string]bool
	failures   map[string]error
	version    uint64
	epoch      uint64

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:    make(map[string]*mindmap.Node),
		expanded: make(map[string]bool),
		loading:  make(map[string]bool),
		failures: make(map[string]error),
		subs:     make(map[int]func(Snapshot)),
	}
}

// Update applies fn as one transition. Changes made by fn become visible to
// readers all at once when fn returns. The error returned by fn is passed
// through; changes made before the error are still committed, so fn should
// validate before it mutates.
//
// Subscribers are notified after the lock is released, and only if fn
// changed something.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	tx := &Tx{s: s}
	err := fn(tx)
	var snap Snapshot
	if tx.changed {
		s.version++
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if tx.changed {
		s.notify(snap)
	}
	return err
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	nodes := make(map[string]mindmap.Node, len(s.nodes))
	for id, n := range s.nodes {
		nodes[id] = n.Clone()
	}
	return Snapshot{
		Version:    s.version,
		DocumentID: s.documentID,
		RootID:     s.rootID,
		Nodes:      nodes,
		Expanded:   maps.Clone(s.expanded),
		Loading:    maps.Clone(s.loading),
		Failures:   maps.Clone(s.failures),
	}
}

// Subscribe registers fn to receive the snapshot produced by every committed
// change. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Version returns a counter that increases with every committed change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// RootID returns the root node id, or "" before the first load.
func (s *Store) RootID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootID
}

// Len returns the number of known nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (mindmap.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return mindmap.Node{}, false
	}
	return n.Clone(), true
}

// IsExpanded reports whether id is marked expanded.
func (s *Store) IsExpanded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[id]
}

// IsLoading reports whether a children fetch for id is in flight.
func (s *Store) IsLoading(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[id]
}

// =============================================================================
// Tx - Mutations Within One Transition
// =============================================================================

// Tx is the mutable view handed to [Store.Update]. It must not be retained
// after the update function returns.
type Tx struct {
	s       *Store
	changed bool
}

// DocumentID returns the id of the loaded document.
func (tx *Tx) DocumentID() string { return tx.s.documentID }

// RootID returns the root node id.
func (tx *Tx) RootID() string { return tx.s.rootID }

// Epoch identifies the current document load. It changes on every [Tx.Reset],
// so work started under an older epoch can tell its results are stale.
func (tx *Tx) Epoch() uint64 { return tx.s.epoch }

// Reset drops all nodes and state and prepares the store for documentID.
func (tx *Tx) Reset(documentID string) {
	tx.s.epoch++
	tx.s.documentID = documentID
	tx.s.rootID = ""
	clear(tx.s.nodes)
	clear(tx.s.expanded)
	clear(tx.s.loading)
	clear(tx.s.failures)
	tx.changed = true
}

// Node returns a copy of a node.
func (tx *Tx) Node(id string) (mindmap.Node, bool) {
	n, ok := tx.s.nodes[id]
	if !ok {
		return mindmap.Node{}, false
	}
	return n.Clone(), true
}

// Has reports whether a node is present.
func (tx *Tx) Has(id string) bool {
	_, ok := tx.s.nodes[id]
	return ok
}

// MissingChildren returns the declared children of id that are not present,
// in declared order. It returns nil when the node itself is unknown.
func (tx *Tx) MissingChildren(id string) []string {
	n, ok := tx.s.nodes[id]
	if !ok {
		return nil
	}
	return missingChildren(n, tx.s.nodes)
}

// ChildrenPresent reports whether id is known and all its declared children are too.
// A node that asserts HasChildren but declares no ids is never complete.
func (tx *Tx) ChildrenPresent(id string) bool {
	n, ok := tx.s.nodes[id]
	if !ok {
		return false
	}
	return childrenComplete(n, tx.s.nodes)
}

// Insert merges one node using the insert-or-ignore rule.
//
// Rejected inserts return an INCONSISTENT_TREE or INVALID_INPUT error
// describing the violated invariant:
//   - a second root (a parentless node other than the current root)
//   - a new node whose parent is not present
//   - an existing node presented with a different parent
func (tx *Tx) Insert(n mindmap.Node) (MergeResult, error) {
	return tx.merge(n, false)
}

// Refresh is [Tx.Insert] for the node whose expansion was just fetched:
// its full content, which only arrives with the expansion, is also filled
// in when the stored copy has none. Present content is never replaced.
func (tx *Tx) Refresh(n mindmap.Node) (MergeResult, error) {
	return tx.merge(n, true)
}

func (tx *Tx) merge(n mindmap.Node, fillContent bool) (MergeResult, error) {
	if err := errors.ValidateID(n.ID); err != nil {
		return Rejected, err
	}

	if cur, ok := tx.s.nodes[n.ID]; ok {
		if cur.ParentID != n.ParentID {
			return Rejected, errors.New(errors.ErrCodeInconsistentTree,
				"node %s: parent %q conflicts with known parent %q", n.ID, n.ParentID, cur.ParentID)
		}
		return tx.extend(cur, n, fillContent), nil
	}

	if n.ParentID == "" {
		if tx.s.rootID != "" && tx.s.rootID != n.ID {
			return Rejected, errors.New(errors.ErrCodeInconsistentTree,
				"node %s has no parent but root is %s", n.ID, tx.s.rootID)
		}
		tx.s.rootID = n.ID
	} else if _, ok := tx.s.nodes[n.ParentID]; !ok {
		return Rejected, errors.New(errors.ErrCodeInconsistentTree,
			"node %s references unknown parent %s", n.ID, n.ParentID)
	}

	c := n.Clone()
	if c.ChildIDs == nil {
		c.ChildIDs = []string{}
	}
	tx.s.nodes[n.ID] = &c
	tx.changed = true
	return Inserted, nil
}

// extend grows cur's declared children with ids from n it does not know yet.
// Content is never touched, except that fillContent lets an empty
// FullContent take n's.
func (tx *Tx) extend(cur *mindmap.Node, n mindmap.Node, fillContent bool) MergeResult {
	result := Ignored
	known := make(map[string]bool, len(cur.ChildIDs))
	for _, id := range cur.ChildIDs {
		known[id] = true
	}
	for _, id := range n.ChildIDs {
		if !known[id] {
			known[id] = true
			cur.ChildIDs = append(cur.ChildIDs, id)
			result = Extended
		}
	}
	if n.HasChildren && !cur.HasChildren {
		cur.HasChildren = true
		result = Extended
	}
	if fillContent && cur.FullContent == "" && n.FullContent != "" {
		cur.FullContent = n.FullContent
		result = Extended
	}
	if result == Extended {
		tx.changed = true
	}
	return result
}

// InsertAll merges a batch of nodes in which parents may appear after their
// children. Nodes are inserted as soon as their parent is present; whatever
// cannot be placed is reported in rejected alongside the first error.
func (tx *Tx) InsertAll(nodes []mindmap.Node) (inserted int, rejected []string, err error) {
	pending := nodes
	for len(pending) > 0 {
		var next []mindmap.Node
		progress := false
		for _, n := range pending {
			if n.ParentID != "" && !tx.Has(n.ParentID) && !tx.Has(n.ID) {
				next = append(next, n)
				continue
			}
			res, ierr := tx.Insert(n)
			switch {
			case ierr != nil:
				rejected = append(rejected, n.ID)
				if err == nil {
					err = ierr
				}
			case res == Inserted:
				inserted++
				progress = true
			}
		}
		if !progress {
			for _, n := range next {
				rejected = append(rejected, n.ID)
				if err == nil {
					err = errors.New(errors.ErrCodeInconsistentTree,
						"node %s references unknown parent %s", n.ID, n.ParentID)
				}
			}
			break
		}
		pending = next
	}
	return inserted, rejected, err
}

// IsExpanded reports whether id is marked expanded.
func (tx *Tx) IsExpanded(id string) bool { return tx.s.expanded[id] }

// SetExpanded marks id expanded or collapsed. Expanding a node whose declared
// children are not all present is refused with INCONSISTENT_TREE.
func (tx *Tx) SetExpanded(id string, expanded bool) error {
	if expanded {
		n, ok := tx.s.nodes[id]
		if !ok {
			return errors.New(errors.ErrCodeNodeNotFound, "node %s not found", id)
		}
		if missing := missingChildren(n, tx.s.nodes); len(missing) > 0 {
			return errors.New(errors.ErrCodeInconsistentTree,
				"node %s: %d declared children missing", id, len(missing))
		}
	}
	if tx.s.expanded[id] != expanded {
		tx.changed = true
	}
	if _, ok := tx.s.expanded[id]; !ok {
		tx.changed = true
	}
	tx.s.expanded[id] = expanded
	return nil
}

// IsLoading reports whether a fetch for id is in flight.
func (tx *Tx) IsLoading(id string) bool { return tx.s.loading[id] }

// SetLoading marks or clears the in-flight flag for id. Cleared entries are
// removed, so loading only ever holds outstanding fetches.
func (tx *Tx) SetLoading(id string, loading bool) {
	if loading {
		if !tx.s.loading[id] {
			tx.s.loading[id] = true
			tx.changed = true
		}
		return
	}
	if _, ok := tx.s.loading[id]; ok {
		delete(tx.s.loading, id)
		tx.changed = true
	}
}

// Failure returns the last recorded error for id.
func (tx *Tx) Failure(id string) error { return tx.s.failures[id] }

// SetFailure records (or with nil, clears) the transient error for id.
func (tx *Tx) SetFailure(id string, err error) {
	if err == nil {
		if _, ok := tx.s.failures[id]; ok {
			delete(tx.s.failures, id)
			tx.changed = true
		}
		return
	}
	tx.s.failures[id] = err
	tx.changed = true
}

func missingChildren(n *mindmap.Node, nodes map[string]*mindmap.Node) []string {
	var missing []string
	for _, cid := range n.ChildIDs {
		if _, ok := nodes[cid]; !ok {
			missing = append(missing, cid)
		}
	}
	return missing
}

func childrenComplete(n *mindmap.Node, nodes map[string]*mindmap.Node) bool {
	if n.HasChildren && len(n.ChildIDs) == 0 {
		return false
	}
	return len(missingChildren(n, nodes)) == 0
}
