// Package pipeline turns tree state into rendered diagrams.
//
// The pipeline has three pure stages, re-run after every store commit:
//
//  1. Resolve: which nodes are visible ([tree.Resolve])
//  2. Compute: where each visible node goes ([layout.Compute])
//  3. Project: flatten state and positions into a [render.Scene]
//
// A [Runner] wraps the stages with logging and hooks, and renders scenes to
// DOT, SVG, PNG, PDF or JSON, caching the bytes.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), logger)
//	scene := runner.Scene(ctx, store.Snapshot(), layout.DefaultGeometry())
//	artifacts, err := runner.Render(ctx, scene, pipeline.Options{
//	    Formats: []string{pipeline.FormatSVG},
//	})
package pipeline

import (
	"fmt"
	"slices"
	"strings"
)

// Output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// Options configures rendering.
type Options struct {
	Formats  []string // Output formats; defaults to svg
	Detailed bool     // Summaries and page ranges in node labels
	Refresh  bool     // Ignore cached artifacts
}

// ValidateAndSetDefaults fills in defaults and rejects unknown formats.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	return ValidateFormats(o.Formats)
}

// ValidateFormat checks a single format name. Names are case-sensitive.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(formatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks every format in the list.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated list such as "svg,png".
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func formatNames() []string {
	names := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}
