package pipeline

import (
	"fmt"

	"github.com/matzehuels/docmap/pkg/core/render"
	"github.com/matzehuels/docmap/pkg/core/render/nodelink"
)

// Render produces one artifact per requested format, without caching.
func Render(sc render.Scene, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	dot := nodelink.ToDOT(sc, nodelink.Options{Detailed: opts.Detailed})
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := renderFormat(sc, dot, format)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func renderFormat(sc render.Scene, dot, format string) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return nodelink.RenderSVG(dot)
	case FormatPNG:
		return nodelink.RenderPNG(dot)
	case FormatPDF:
		return nodelink.RenderPDF(dot)
	case FormatJSON:
		return render.MarshalScene(sc)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
