package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/storage"
)

// documentRepo is the part of the document service the documents commands
// need. Both the HTTP client and the local service provide it.
type documentRepo interface {
	Documents(ctx context.Context) ([]storage.DocumentInfo, error)
	Audit(ctx context.Context, contentHash string) ([]storage.AuditEntry, error)
	Delete(ctx context.Context, contentHash string) error
}

// openRepo returns the remote service when serverURL is set, otherwise the
// local storage. The returned func releases the repo.
func (c *CLI) openRepo(ctx context.Context, serverURL string) (documentRepo, func() error, error) {
	if serverURL != "" {
		client, err := c.newClient(serverURL, 0)
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	}
	svc, store, err := c.openService(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	return svc, store.Close, nil
}

// documentsCommand lists persisted documents.
func (c *CLI) documentsCommand() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"ls"},
		Short:   "List persisted documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			repo, release, err := c.openRepo(ctx, serverURL)
			if err != nil {
				return err
			}
			defer release()

			docs, err := repo.Documents(ctx)
			if err != nil {
				return fmt.Errorf("list documents: %w", err)
			}
			if len(docs) == 0 {
				printInfo("No documents")
				printNextStep("Import one", appName+" import tree.json")
				return nil
			}
			fmt.Fprintln(stdout, documentsTable(docs))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "document service URL (default: local storage)")

	cmd.AddCommand(c.auditCommand(&serverURL))
	return cmd
}

// auditCommand prints a document's audit trail.
func (c *CLI) auditCommand(serverURL *string) *cobra.Command {
	return &cobra.Command{
		Use:               "audit [contentHash]",
		Short:             "Show the audit trail of a document",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeDocuments(byContentHash),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateContentHash(args[0]); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			repo, release, err := c.openRepo(ctx, *serverURL)
			if err != nil {
				return err
			}
			defer release()

			entries, err := repo.Audit(ctx, args[0])
			if err != nil {
				return fmt.Errorf("audit %s: %w", args[0], err)
			}
			fmt.Fprintln(stdout, auditTable(entries))
			return nil
		},
	}
}

// deleteCommand removes a persisted document.
func (c *CLI) deleteCommand() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:               "delete [contentHash]",
		Short:             "Delete a persisted document and its audit trail",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeDocuments(byContentHash),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := args[0]
			if err := errors.ValidateContentHash(hash); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			repo, release, err := c.openRepo(ctx, serverURL)
			if err != nil {
				return err
			}
			defer release()

			if err := repo.Delete(ctx, hash); err != nil {
				if errors.IsNotFound(err) {
					printWarning("No document with hash %s", hash)
					return nil
				}
				return fmt.Errorf("delete %s: %w", hash, err)
			}
			printSuccess("Deleted %s", hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "document service URL (default: local storage)")

	return cmd
}
