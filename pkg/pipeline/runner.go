package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docmap/pkg/cache"
	"github.com/matzehuels/docmap/pkg/core/layout"
	"github.com/matzehuels/docmap/pkg/core/render"
	"github.com/matzehuels/docmap/pkg/core/tree"
	"github.com/matzehuels/docmap/pkg/observability"
)

// Runner executes the pipeline with logging and an artifact cache.
// It holds no pipeline results, so one Runner can serve many goroutines.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching; a nil logger
// uses the default logger.
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Scene runs Resolve → Compute → Project over one snapshot.
func (r *Runner) Scene(ctx context.Context, snap tree.Snapshot, g layout.Geometry) render.Scene {
	start := time.Now()
	view := tree.Resolve(snap)
	l := layout.Compute(view, g)
	sc := render.Project(snap, view, l)
	elapsed := time.Since(start)

	observability.Layout().OnLayoutComplete(ctx, view.Len(), elapsed)
	r.Logger.Debug("computed layout",
		"document", snap.DocumentID,
		"version", snap.Version,
		"visible", view.Len(),
		"duration", elapsed)
	return sc
}

// Render produces artifacts, serving each format from the cache when every
// requested format is cached. The bool reports a full cache hit.
func (r *Runner) Render(ctx context.Context, sc render.Scene, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	sceneData, err := render.MarshalScene(sc)
	if err != nil {
		return nil, false, fmt.Errorf("serialize scene for cache key: %w", err)
	}
	sceneHash := cache.Hash(sceneData)
	key := func(format string) string {
		return cache.ArtifactKey(sceneHash, cache.ArtifactKeyOpts{Format: format, Detailed: opts.Detailed})
	}

	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, key(format))
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			r.Logger.Debug("rendered from cache", "formats", opts.Formats)
			return artifacts, true, nil
		}
	}

	start := time.Now()
	artifacts, err := Render(sc, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range artifacts {
		if err := r.Cache.Set(ctx, key(format), data, cache.TTLArtifact); err != nil {
			r.Logger.Warn("cache artifact", "format", format, "err", err)
		}
	}
	r.Logger.Info("rendered outputs", "formats", opts.Formats, "nodes", len(sc.Nodes), "duration", time.Since(start))
	return artifacts, false, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
