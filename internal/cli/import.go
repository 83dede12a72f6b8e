package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/docmap/pkg/docservice"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/storage"
)

// importCommand persists a node tree file.
func (c *CLI) importCommand() *cobra.Command {
	var (
		serverURL  string
		documentID string
		pages      int
	)

	cmd := &cobra.Command{
		Use:   "import [tree.json]",
		Short: "Validate and persist a document tree",
		Long: `Validate a document tree and persist it.

The file holds either a flat tree ({document_id, root_id, nodes}) or a
nested outline ({title, children: [...]}); outline nodes get fresh UUIDs.
The document is stored under the content hash of the file, so importing
the same file twice replaces the earlier copy.

With --server the tree is uploaded to a running document service instead
of the local storage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd.Context(), args[0], serverURL, documentID, pages)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "document service URL (default: local storage)")
	cmd.Flags().StringVar(&documentID, "id", "", "document id (default: from file, else a new UUID)")
	cmd.Flags().IntVar(&pages, "pages", 0, "page count of the source document")

	return cmd
}

func (c *CLI) runImport(ctx context.Context, path, serverURL, documentID string, pages int) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	t, err := mindmap.UnmarshalTree(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if documentID != "" {
		t.DocumentID = documentID
	}
	req := docservice.ImportRequest{Tree: t, OriginalFilename: filepath.Base(path), PageCount: pages}

	var info storage.DocumentInfo
	if serverURL != "" {
		client, err := c.newClient(serverURL, 0)
		if err != nil {
			return err
		}
		info, err = client.Import(ctx, req)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
	} else {
		svc, store, err := c.openService(ctx, false)
		if err != nil {
			return err
		}
		defer store.Close()
		info, err = svc.Import(ctx, req, raw)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
	}

	printSuccess("Imported %s", StyleValue.Render(info.DocumentID))
	printKeyValue("hash", info.ContentHash)
	printKeyValue("nodes", fmt.Sprint(info.NodeCount))
	printNewline()
	printNextStep("Explore", appName+" explore "+info.DocumentID)
	return nil
}
