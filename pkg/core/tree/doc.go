// Package tree holds the client-side state of a progressively disclosed
// document tree and derives what is visible from it.
//
// # State
//
// [Store] is the single container for three maps:
//
//   - nodes: every node discovered so far (a superset of what is visible)
//   - expanded: which nodes should show their children
//   - loading: which nodes have a children fetch in flight
//
// plus a per-node failure slot for the last fetch or integrity error.
//
// All mutations go through [Store.Update], which applies a transition under
// one write lock. Readers take a [Snapshot], a deep copy, so a reader never
// observes a half-applied transition. Subscribers registered with
// [Store.Subscribe] receive the new snapshot after every committed change.
//
// # Merge Rule
//
// Nodes are insert-or-ignore: once a node is present its identity, parent and
// content never change. The only permitted growth is extending ChildIDs with
// ids not yet declared and raising HasChildren. A new node is accepted only
// when its parent is already present (or arrives earlier in the same batch).
//
// # Visibility
//
// [Resolve] is a pure function of a snapshot: a node is visible iff it is the
// root, or its parent is visible and expanded. Collapsing a node hides its
// descendants but leaves their own expansion flags alone, so re-expanding
// restores the previous view without refetching.
package tree
