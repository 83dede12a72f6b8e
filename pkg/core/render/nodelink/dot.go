package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/docmap/pkg/core/render"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/observability"
)

const pointsPerInch = 72.0

// Options configures node-link diagram export.
type Options struct {
	// Detailed adds the summary and page range below each title.
	Detailed bool
}

var kindFill = map[mindmap.Kind]string{
	mindmap.KindRoot:       "#dbeafe",
	mindmap.KindSection:    "#e0f2fe",
	mindmap.KindSubsection: "#f0f9ff",
	mindmap.KindTopic:      "#f8fafc",
	mindmap.KindDetail:     "white",
}

// ToDOT converts a scene to Graphviz DOT with every node pinned to its
// computed position.
func ToDOT(sc render.Scene, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph docmap {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=line;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fixedsize=true, fontsize=12, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [arrowhead=none, color=\"#94a3b8\"];\n")
	buf.WriteString("\n")

	for _, n := range sc.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(fmtAttrs(n, opts), ", "))
	}

	buf.WriteString("\n")
	for _, e := range sc.Edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n render.NodeRecord, detailed bool) string {
	title := n.Title
	switch {
	case n.Expandable && n.Expanded:
		title += " −"
	case n.Expandable:
		title += " +"
	}
	lines := wrap(title, charsPerLine(n.Width))
	if !detailed {
		return strings.Join(lines, "\n")
	}
	if n.Summary != "" {
		lines = append(lines, wrap(n.Summary, charsPerLine(n.Width))...)
	}
	if n.Pages != "" {
		lines = append(lines, n.Pages)
	}
	return strings.Join(lines, "\n")
}

func fmtAttrs(n render.NodeRecord, opts Options) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed)),
		fmt.Sprintf("pos=\"%s,%s!\"", fmtFloat(n.X), fmtFloat(-n.Y)),
		fmt.Sprintf("width=%s", fmtFloat(n.Width/pointsPerInch)),
		fmt.Sprintf("height=%s", fmtFloat(n.Height/pointsPerInch)),
	}
	if fill, ok := kindFill[n.Kind]; ok && fill != "white" {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", fill))
	}
	if n.Loading {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	if n.Error != "" {
		attrs = append(attrs, "color=\"#dc2626\"", "penwidth=2", fmt.Sprintf("tooltip=%q", n.Error))
	}
	return attrs
}

// charsPerLine estimates how many characters fit across a box at fontsize 12.
func charsPerLine(width float64) int {
	return max(int(width/7), 8)
}

// wrap breaks s on spaces into lines of at most n characters. Words longer
// than n are kept whole.
func wrap(s string, n int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var (
		lines []string
		cur   strings.Builder
	)
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > n {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	return append(lines, cur.String())
}

// fmtFloat prints f with at most three decimals and no trailing zeros.
func fmtFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 3, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// RenderSVG renders a DOT graph to SVG using Graphviz's neato engine.
func RenderSVG(dot string) ([]byte, error) {
	out, err := renderFormat(dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.PNG)
}

func renderFormat(dot string, format graphviz.Format) (_ []byte, err error) {
	ctx := context.Background()
	start := time.Now()
	defer func() {
		observability.Layout().OnRenderComplete(ctx, string(format), time.Since(start), err)
	}()

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root <svg> tag to a zero-origin viewBox with
// explicit pixel dimensions.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
