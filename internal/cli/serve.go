package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/docmap/internal/server"
)

// serveCommand runs the document service.
func (c *CLI) serveCommand() *cobra.Command {
	var addr, backend string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the document service",
		Long: `Run the document service over the configured storage backend.

Every persisted document is indexed at startup. The service stops
gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.Config.Server.Addr = addr
			}
			if backend != "" {
				c.Config.Storage.Backend = backend
			}
			if err := c.Config.Validate(); err != nil {
				return err
			}
			return c.runServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config: "+c.Config.Server.Addr+")")
	cmd.Flags().StringVar(&backend, "storage", "", "storage backend: file, memory, redis, mongo")

	return cmd
}

func (c *CLI) runServe(ctx context.Context) error {
	svc, store, err := c.openService(ctx, true)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(svc, c.Logger, c.Config.Server)
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
