package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/matzehuels/docmap/pkg/errors"
)

// rsvgConvert is looked up on PATH. Graphviz's wasm build has no cairo
// backend, so PDF goes through SVG.
var rsvgConvert = "rsvg-convert"

// RenderPDF renders a DOT graph to SVG and converts it with rsvg-convert
// (librsvg2-bin on Debian, librsvg on Homebrew).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return svgToPDF(context.Background(), svg)
}

func svgToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	bin, err := exec.LookPath(rsvgConvert)
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "pdf output needs %s on PATH", rsvgConvert)
	}
	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "--format", "pdf")
	cmd.Stdin = bytes.NewReader(svg)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", rsvgConvert, err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}
