package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/docmap/pkg/core/expand"
	"github.com/matzehuels/docmap/pkg/core/tree"
)

// exploreCommand opens the interactive tree explorer.
func (c *CLI) exploreCommand() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "explore [documentID]",
		Short: "Explore a document interactively",
		Long: `Explore a document in an interactive terminal tree.

Move with the arrow keys and toggle nodes with enter or space. Children
that have not been loaded yet are fetched in the background; the node shows
as loading and the rest of the tree stays usable. Failed expansions are
marked and can be retried by toggling again.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeDocuments(byDocumentID),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), args[0], serverURL)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "document service URL (default: local storage)")

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, documentID, serverURL string) error {
	src, err := c.openFetcher(ctx, serverURL, documentID, c.Config.Client.Depth)
	if err != nil {
		return err
	}
	defer src.close()

	// Logs would tear the full-screen view; only warnings and errors get through.
	logger := c.Logger.With()
	logger.SetLevel(LogWarn)

	store := tree.NewStore()
	ctrl := expand.New(store, src.fetcher, logger)
	ctrl.Concurrency = c.concurrency()

	p := tea.NewProgram(NewExploreModel(ctx, ctrl, documentID), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := store.Subscribe(func(s tree.Snapshot) { p.Send(snapshotMsg(s)) })
	defer unsubscribe()

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("explorer: %w", err)
	}
	if m, ok := final.(ExploreModel); ok && m.loadErr != nil {
		return m.loadErr
	}
	return nil
}
