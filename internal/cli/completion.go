package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/docmap/pkg/config"
	"github.com/matzehuels/docmap/pkg/storage"
)

// completionCommand generates shell completion scripts.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for docmap.

Bash:
  $ source <(docmap completion bash)

Zsh:
  $ docmap completion zsh > "${fpath[1]}/_docmap"

Fish:
  $ docmap completion fish > ~/.config/fish/completions/docmap.fish

PowerShell:
  PS> docmap completion powershell | Out-String | Invoke-Expression

Document ids and content hashes are completed from the local storage.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(os.Stdout, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}

const completionTimeout = 5 * time.Second

// completeDocuments completes the first argument from persisted documents,
// using pick to choose the value (document id or content hash). Completion
// runs without the root pre-run, so the config is loaded here.
func (c *CLI) completeDocuments(pick func(storage.DocumentInfo) (value, desc string)) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		c.Config = cfg
		c.SetLogLevel(LogError)

		ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
		defer cancel()
		store, err := c.openStore(ctx)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		defer store.Close()
		docs, err := store.List(ctx)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		seen := make(map[string]bool)
		var out []string
		for _, d := range docs {
			value, desc := pick(d)
			if seen[value] || !strings.HasPrefix(value, toComplete) {
				continue
			}
			seen[value] = true
			out = append(out, value+"\t"+desc)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

func byDocumentID(d storage.DocumentInfo) (string, string) { return d.DocumentID, d.OriginalFilename }

func byContentHash(d storage.DocumentInfo) (string, string) {
	return d.ContentHash, d.DocumentID + " " + d.OriginalFilename
}
