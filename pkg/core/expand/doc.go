// Package expand implements the asynchronous expand protocol.
//
// A [Controller] owns the transitions of a [tree.Store]. Each node moves
// through three states:
//
//	collapsed --toggle--> expanding --fetch ok--> expanded
//	    ^                     |                       |
//	    +----- fetch failed --+                       |
//	    +------------------- toggle ------------------+
//
// Toggling a collapsed node whose declared children are already known
// expands it without a fetch. Otherwise the node is marked loading in the
// same commit that checked it, the [Fetcher] is called outside the store's
// lock, and the response is merged, the node expanded and the loading flag
// cleared in a single commit. A second toggle while loading is suppressed,
// so there is never more than one outstanding fetch per node.
//
// Failures are per node. A failed fetch or an inconsistent response leaves
// the node collapsed with the error recorded on it; the rest of the tree is
// untouched and a later toggle retries. Nothing is retried automatically.
//
// Calls are synchronous for their caller. Concurrency comes from callers
// running toggles for distinct nodes in parallel, for example from
// bubbletea commands or [Controller.ExpandAll].
package expand
