package docservice

import (
	"context"

	"github.com/matzehuels/docmap/pkg/mindmap"
)

// DefaultDepth is the number of levels below the root an initial load returns.
const DefaultDepth = 1

// Local serves the expansion controller straight from an Index, without
// HTTP. It never retries and never blocks.
type Local struct {
	Index *Index
	Depth int
}

// NewLocal returns a fetcher over x with the default initial depth.
func NewLocal(x *Index) *Local { return &Local{Index: x, Depth: DefaultDepth} }

func (l *Local) FetchInitialTree(ctx context.Context, documentID string) (mindmap.Tree, error) {
	if err := ctx.Err(); err != nil {
		return mindmap.Tree{}, err
	}
	return l.Index.Tree(documentID, l.Depth)
}

func (l *Local) FetchChildren(ctx context.Context, nodeID string) (mindmap.Expansion, error) {
	if err := ctx.Err(); err != nil {
		return mindmap.Expansion{}, err
	}
	return l.Index.Expand(nodeID, true)
}
