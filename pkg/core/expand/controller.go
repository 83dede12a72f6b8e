package expand

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/docmap/pkg/core/tree"
	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/observability"
)

// DefaultConcurrency bounds parallel fetches in [Controller.ExpandAll].
const DefaultConcurrency = 4

// Fetcher retrieves tree data from the document service.
type Fetcher interface {
	// FetchInitialTree returns the root and a shallow set of descendants.
	FetchInitialTree(ctx context.Context, documentID string) (mindmap.Tree, error)

	// FetchChildren returns the up-to-date node and its immediate children.
	FetchChildren(ctx context.Context, nodeID string) (mindmap.Expansion, error)
}

// Outcome reports what a toggle did.
type Outcome int

const (
	// OutcomeIgnored means nothing changed: the node has no children, the
	// request was already satisfied, or the document was switched mid-fetch.
	OutcomeIgnored Outcome = iota
	// OutcomeSuppressed means a fetch for the node was already in flight.
	OutcomeSuppressed
	// OutcomeCollapsed means an expanded node was collapsed.
	OutcomeCollapsed
	// OutcomeExpanded means the node was expanded from known children.
	OutcomeExpanded
	// OutcomeFetched means children were fetched, merged and shown.
	OutcomeFetched
	// OutcomeFailed means the fetch or merge failed; the node stays collapsed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeCollapsed:
		return "collapsed"
	case OutcomeExpanded:
		return "expanded"
	case OutcomeFetched:
		return "fetched"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// State is the per-node position in the expand protocol.
type State int

const (
	Collapsed State = iota
	Expanding
	Expanded
)

func (s State) String() string {
	switch s {
	case Expanding:
		return "expanding"
	case Expanded:
		return "expanded"
	default:
		return "collapsed"
	}
}

type intent int

const (
	intentToggle intent = iota
	intentOpen
	intentClose
)

// Controller drives expansion and collapse for one store.
// It is safe for concurrent use.
type Controller struct {
	Store       *tree.Store
	Fetcher     Fetcher
	Logger      *log.Logger
	Concurrency int
}

// New creates a controller. A nil logger falls back to [log.Default].
func New(store *tree.Store, f Fetcher, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		Store:       store,
		Fetcher:     f,
		Logger:      logger,
		Concurrency: DefaultConcurrency,
	}
}

// Load replaces the store's contents with the initial tree of documentID and
// expands the root. If the root's children were not part of the initial
// tree they are fetched first.
func (c *Controller) Load(ctx context.Context, documentID string) error {
	var epoch uint64
	_ = c.Store.Update(func(tx *tree.Tx) error {
		tx.Reset(documentID)
		epoch = tx.Epoch()
		return nil
	})

	t, err := c.Fetcher.FetchInitialTree(ctx, documentID)
	if err != nil {
		if errors.IsNotFound(err) {
			return err
		}
		return errors.Wrap(errors.ErrCodeFetchFailed, err, "load document %s", documentID)
	}
	if err := t.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInconsistentTree, err, "initial tree of %s", documentID)
	}

	stale := false
	err = c.Store.Update(func(tx *tree.Tx) error {
		if tx.Epoch() != epoch {
			stale = true
			return nil
		}
		_, rejected, err := tx.InsertAll(t.Nodes)
		if len(rejected) > 0 {
			return errors.Wrap(errors.ErrCodeInconsistentTree, err, "initial tree of %s: %d nodes rejected", documentID, len(rejected))
		}
		return nil
	})
	if err != nil || stale {
		return err
	}

	c.Logger.Debug("loaded document", "document", documentID, "nodes", len(t.Nodes), "root", t.RootID)

	if _, err := c.Expand(ctx, t.RootID); err != nil {
		return fmt.Errorf("expand root: %w", err)
	}
	return nil
}

// Toggle expands a collapsed node or collapses an expanded one.
func (c *Controller) Toggle(ctx context.Context, id string) (Outcome, error) {
	return c.transition(ctx, id, intentToggle)
}

// Expand is the one-way form of [Controller.Toggle]; an expanded node is
// left alone.
func (c *Controller) Expand(ctx context.Context, id string) (Outcome, error) {
	return c.transition(ctx, id, intentOpen)
}

// Collapse hides the children of id. Collapsing never fetches, and the
// expansion flags of descendants are kept.
func (c *Controller) Collapse(id string) (Outcome, error) {
	return c.transition(context.Background(), id, intentClose)
}

// State returns the protocol state of id.
func (c *Controller) State(id string) State {
	switch {
	case c.Store.IsLoading(id):
		return Expanding
	case c.Store.IsExpanded(id):
		return Expanded
	default:
		return Collapsed
	}
}

// Failure returns the error recorded by the last failed expansion of id.
func (c *Controller) Failure(id string) error {
	return c.Store.Snapshot().Failure(id)
}

func (c *Controller) transition(ctx context.Context, id string, want intent) (Outcome, error) {
	var (
		outcome Outcome
		fetch   bool
		epoch   uint64
	)
	err := c.Store.Update(func(tx *tree.Tx) error {
		n, ok := tx.Node(id)
		if !ok {
			return errors.New(errors.ErrCodeNodeNotFound, "node %s not found", id)
		}
		expanded := tx.IsExpanded(id)
		switch {
		case want == intentClose || (want == intentToggle && expanded):
			if !expanded {
				outcome = OutcomeIgnored
				return nil
			}
			outcome = OutcomeCollapsed
			return tx.SetExpanded(id, false)
		case !n.Expandable():
			outcome = OutcomeIgnored
		case tx.IsLoading(id):
			outcome = OutcomeSuppressed
		case expanded:
			outcome = OutcomeIgnored
		case tx.ChildrenPresent(id):
			outcome = OutcomeExpanded
			tx.SetFailure(id, nil)
			return tx.SetExpanded(id, true)
		default:
			tx.SetLoading(id, true)
			tx.SetFailure(id, nil)
			fetch = true
			epoch = tx.Epoch()
		}
		return nil
	})
	if err != nil {
		return OutcomeIgnored, err
	}
	if fetch {
		outcome, err = c.fetch(ctx, id, epoch)
	}

	observability.Expand().OnToggle(ctx, id, outcome.String())
	c.Logger.Debug("toggle", "id", id, "outcome", outcome)
	return outcome, err
}

func (c *Controller) fetch(ctx context.Context, id string, epoch uint64) (Outcome, error) {
	hooks := observability.Expand()
	hooks.OnFetchStart(ctx, id)
	start := time.Now()

	exp, err := c.Fetcher.FetchChildren(ctx, id)
	hooks.OnFetchComplete(ctx, id, len(exp.Children), time.Since(start), err)

	if err != nil {
		ferr := errors.Wrap(errors.ErrCodeFetchFailed, err, "fetch children of %s", id)
		_ = c.Store.Update(func(tx *tree.Tx) error {
			if tx.Epoch() != epoch {
				return nil
			}
			tx.SetLoading(id, false)
			tx.SetFailure(id, ferr)
			return nil
		})
		c.Logger.Warn("fetch failed", "id", id, "err", err)
		return OutcomeFailed, ferr
	}

	var (
		outcome = OutcomeFetched
		dropped int
		merged  int
	)
	err = c.Store.Update(func(tx *tree.Tx) error {
		if tx.Epoch() != epoch {
			outcome = OutcomeIgnored
			return nil
		}
		tx.SetLoading(id, false)
		cur, _ := tx.Node(id)

		if exp.Node.ID == id {
			if _, err := tx.Refresh(exp.Node); err != nil {
				c.Logger.Debug("ignored refreshed node", "id", id, "err", err)
			}
		}

		accepted := make([]string, 0, len(exp.Children))
		for _, child := range exp.Children {
			if child.ParentID != id {
				dropped++
				continue
			}
			res, err := tx.Insert(child)
			if err != nil {
				dropped++
				continue
			}
			if res == tree.Inserted {
				merged++
			}
			accepted = append(accepted, child.ID)
		}
		// Children that arrive undeclared are appended to the declared list,
		// sorted by id.
		slices.Sort(accepted)
		_, _ = tx.Insert(mindmap.Node{ID: id, ParentID: cur.ParentID, ChildIDs: accepted})

		if !tx.ChildrenPresent(id) {
			outcome = OutcomeFailed
			var ierr error
			if len(exp.Children) == 0 {
				ierr = errors.New(errors.ErrCodeInconsistentTree,
					"node %s: has_children is set but the server returned no children", id)
			} else {
				ierr = errors.New(errors.ErrCodeInconsistentTree,
					"node %s: %d declared children missing after fetch, %d dropped",
					id, len(tx.MissingChildren(id)), dropped)
			}
			tx.SetFailure(id, ierr)
			return ierr
		}
		return tx.SetExpanded(id, true)
	})

	switch {
	case err != nil:
		c.Logger.Warn("inconsistent children", "id", id, "err", err)
		return OutcomeFailed, err
	case outcome == OutcomeIgnored:
		c.Logger.Debug("discarded stale response", "id", id)
	default:
		c.Logger.Debug("expanded node", "id", id, "children", len(exp.Children), "new", merged, "dropped", dropped)
	}
	return outcome, nil
}

// ExpandAll expands the visible tree breadth-first down to maxDepth levels
// below the root (negative means no limit). Nodes on one level are fetched
// concurrently, at most Concurrency at a time.
//
// Per-node failures do not stop the walk; their subtrees are skipped and
// the first failure is returned alongside the number of failed nodes.
func (c *Controller) ExpandAll(ctx context.Context, maxDepth int) (failed int, err error) {
	limit := c.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	snap := c.Store.Snapshot()
	if snap.RootID == "" {
		return 0, errors.New(errors.ErrCodeNotFound, "no document loaded")
	}

	var (
		mu       sync.Mutex
		firstErr error
	)
	frontier := []string{snap.RootID}
	for depth := 0; len(frontier) > 0 && (maxDepth < 0 || depth < maxDepth); depth++ {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for _, id := range frontier {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if _, err := c.Expand(gctx, id); err != nil {
					mu.Lock()
					failed++
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return failed, err
		}

		snap = c.Store.Snapshot()
		var next []string
		for _, id := range frontier {
			if !snap.IsExpanded(id) {
				continue
			}
			n, _ := snap.Node(id)
			for _, cid := range n.ChildIDs {
				if cn, ok := snap.Node(cid); ok && cn.Expandable() {
					next = append(next, cid)
				}
			}
		}
		frontier = next
	}

	if firstErr != nil {
		return failed, fmt.Errorf("%d nodes failed to expand: %w", failed, firstErr)
	}
	return 0, nil
}
