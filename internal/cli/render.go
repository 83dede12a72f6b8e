package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/docmap/pkg/core/layout"
	"github.com/matzehuels/docmap/pkg/core/render"
	"github.com/matzehuels/docmap/pkg/pipeline"
)

type renderOpts struct {
	output   string
	formats  []string
	detailed bool
	noCache  bool
	refresh  bool
	layout   layoutOpts // used when the input is a document id
}

// renderCommand draws a layout as DOT, SVG, PNG or PDF.
func (c *CLI) renderCommand() *cobra.Command {
	var formats string
	opts := renderOpts{layout: layoutOpts{depth: 1}}

	cmd := &cobra.Command{
		Use:   "render [layout.json | documentID]",
		Short: "Render a layout to DOT, SVG, PNG or PDF",
		Long: `Render a layout to DOT, SVG, PNG or PDF.

The input is a layout file written by 'docmap layout', or a document id,
in which case the document is loaded and expanded first (--depth,
--server). Node positions are pinned, so the drawing matches the layout
exactly. Rendered artifacts are cached by scene content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			po := pipeline.Options{Formats: pipeline.ParseFormats(formats)}
			if err := po.ValidateAndSetDefaults(); err != nil {
				return err
			}
			opts.formats = po.Formats
			if !cmd.Flags().Changed("detailed") {
				opts.detailed = c.Config.Render.Detailed
			}
			opts.layout.geometry = c.Config.Layout
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formats, "format", "f", "", "output format(s): svg (default), dot, png, pdf, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show summaries, key concepts and pages")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when cached")
	cmd.Flags().StringVar(&opts.layout.serverURL, "server", "", "document service URL, for document ids (default: local storage)")
	cmd.Flags().IntVarP(&opts.layout.depth, "depth", "d", opts.layout.depth, "levels to expand, for document ids (-1 for all)")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	sc, nodes, err := c.loadScene(ctx, input, opts.layout)
	if err != nil {
		return err
	}
	logger.Debug("rendering", "input", input, "nodes", len(sc.Nodes), "formats", opts.formats)

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sp := newSpinner(ctx, "Rendering "+strings.Join(opts.formats, ", ")+"...")
	sp.Start()
	artifacts, cached, err := runner.Render(ctx, sc, pipeline.Options{
		Formats:  opts.formats,
		Detailed: opts.detailed,
		Refresh:  opts.refresh,
	})
	if err != nil {
		sp.StopWithError("Render failed")
		return err
	}
	sp.Stop()

	base := basePath(opts.output, input)
	printSuccess("Rendered %s", sc.DocumentID)
	for _, format := range opts.formats {
		path := base + "." + format
		if len(opts.formats) == 1 && opts.output != "" {
			path = opts.output
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	printStats(nodes, len(sc.Nodes), cached)
	return nil
}

// loadScene reads a layout file, or expands the document named by input
// when no such file exists. It also returns the number of known nodes.
func (c *CLI) loadScene(ctx context.Context, input string, opts layoutOpts) (render.Scene, int, error) {
	if _, err := os.Stat(input); err == nil {
		sc, err := render.ReadSceneFile(input)
		if err != nil {
			return render.Scene{}, 0, fmt.Errorf("read %s: %w", input, err)
		}
		return sc, len(sc.Nodes), nil
	}
	if strings.HasSuffix(input, ".json") {
		return render.Scene{}, 0, fmt.Errorf("layout file %s does not exist", input)
	}
	if opts.geometry == (layout.Geometry{}) {
		opts.geometry = layout.DefaultGeometry()
	}
	es, err := c.expandScene(ctx, input, opts)
	if err != nil {
		return render.Scene{}, 0, err
	}
	return es.Scene, es.NodeCount, nil
}

// basePath derives the output path without extension. Known format
// extensions and the ".layout.json" suffix are stripped.
func basePath(output, input string) string {
	if output == "" {
		base := strings.TrimSuffix(input, ".layout.json")
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidateFormat(strings.TrimPrefix(ext, ".")) == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
