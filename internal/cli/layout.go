package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/docmap/pkg/core/expand"
	"github.com/matzehuels/docmap/pkg/core/layout"
	"github.com/matzehuels/docmap/pkg/core/render"
	"github.com/matzehuels/docmap/pkg/core/tree"
)

type layoutOpts struct {
	serverURL string
	output    string
	depth     int // levels to expand below the root; negative expands everything
	geometry  layout.Geometry
}

// layoutCommand computes the layout of a document expanded to a depth.
func (c *CLI) layoutCommand() *cobra.Command {
	opts := layoutOpts{depth: 1}

	cmd := &cobra.Command{
		Use:   "layout [documentID]",
		Short: "Expand a document and write its layout",
		Long: `Load a document, expand it to --depth levels and write the layout JSON.

Nodes on one level are fetched concurrently (client.concurrency in the
config). Nodes that fail to expand stay collapsed and are reported; the
layout is still written. The output can be rendered with 'docmap render'.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeDocuments(byDocumentID),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("node-width") {
				opts.geometry.NodeWidth = c.Config.Layout.NodeWidth
			}
			if !cmd.Flags().Changed("node-height") {
				opts.geometry.NodeHeight = c.Config.Layout.NodeHeight
			}
			if !cmd.Flags().Changed("h-spacing") {
				opts.geometry.HorizontalSpacing = c.Config.Layout.HorizontalSpacing
			}
			if !cmd.Flags().Changed("v-spacing") {
				opts.geometry.VerticalSpacing = c.Config.Layout.VerticalSpacing
			}
			return opts.geometry.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], opts)
		},
	}

	def := layout.DefaultGeometry()
	cmd.Flags().StringVar(&opts.serverURL, "server", "", "document service URL (default: local storage)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <documentID>.layout.json)")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", opts.depth, "levels to expand below the root (-1 for all)")
	cmd.Flags().Float64Var(&opts.geometry.NodeWidth, "node-width", def.NodeWidth, "node box width")
	cmd.Flags().Float64Var(&opts.geometry.NodeHeight, "node-height", def.NodeHeight, "node box height")
	cmd.Flags().Float64Var(&opts.geometry.HorizontalSpacing, "h-spacing", def.HorizontalSpacing, "gap between sibling subtrees")
	cmd.Flags().Float64Var(&opts.geometry.VerticalSpacing, "v-spacing", def.VerticalSpacing, "gap between levels")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, documentID string, opts layoutOpts) error {
	sc, err := c.expandScene(ctx, documentID, opts)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = documentID + ".layout.json"
	}
	if err := render.WriteSceneFile(sc.Scene, output); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(sc.NodeCount, len(sc.Scene.Nodes), false)
	printNewline()
	printNextStep("Render", appName+" render "+output)
	return nil
}

// expandedScene is a scene plus the number of nodes known to the store.
type expandedScene struct {
	render.Scene
	NodeCount int
}

// expandScene loads documentID into a fresh store, expands it and projects
// the result.
func (c *CLI) expandScene(ctx context.Context, documentID string, opts layoutOpts) (expandedScene, error) {
	src, err := c.openFetcher(ctx, opts.serverURL, documentID, c.Config.Client.Depth)
	if err != nil {
		return expandedScene{}, err
	}
	defer src.close()

	store := tree.NewStore()
	ctrl := expand.New(store, src.fetcher, c.Logger)
	ctrl.Concurrency = c.concurrency()

	prog := newProgress(c.Logger)
	sp := newSpinner(ctx, "Loading "+documentID+"...")
	sp.Start()
	unsubscribe := store.Subscribe(func(s tree.Snapshot) {
		sp.SetMessage("Expanding %s... %d nodes", documentID, s.Len())
	})

	if err := ctrl.Load(ctx, documentID); err != nil {
		unsubscribe()
		sp.StopWithError("Load failed")
		return expandedScene{}, fmt.Errorf("load %s: %w", documentID, err)
	}
	failed, err := ctrl.ExpandAll(ctx, opts.depth)
	unsubscribe()
	sp.Stop()
	if ctx.Err() != nil {
		return expandedScene{}, ctx.Err()
	}
	if err != nil && failed == 0 {
		return expandedScene{}, fmt.Errorf("expand %s: %w", documentID, err)
	}
	if failed > 0 {
		printWarning("%d nodes could not be expanded", failed)
		printDetail("%v", err)
	}

	snap := store.Snapshot()
	prog.done("expanded document", "document", documentID, "nodes", snap.Len(), "remote", src.remote)

	runner, err := c.newRunner(true)
	if err != nil {
		return expandedScene{}, err
	}
	defer runner.Close()
	return expandedScene{Scene: runner.Scene(ctx, snap, opts.geometry), NodeCount: snap.Len()}, nil
}
