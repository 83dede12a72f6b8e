// Package cli implements the docmap command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docmap/pkg/cache"
	"github.com/matzehuels/docmap/pkg/config"
	"github.com/matzehuels/docmap/pkg/core/expand"
	"github.com/matzehuels/docmap/pkg/docservice"
	"github.com/matzehuels/docmap/pkg/pipeline"
	"github.com/matzehuels/docmap/pkg/storage"
	"github.com/matzehuels/docmap/pkg/storage/file"
	"github.com/matzehuels/docmap/pkg/storage/memory"
	"github.com/matzehuels/docmap/pkg/storage/mongo"
	"github.com/matzehuels/docmap/pkg/storage/redis"
)

// appName is the application name used for directories and display.
const appName = "docmap"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
	LogError = log.ErrorLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded by the root command before any subcommand runs.
	Config     config.Config
	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Factories
// =============================================================================

// openStore opens the configured storage backend.
func (c *CLI) openStore(ctx context.Context) (storage.Store, error) {
	sc := c.Config.Storage
	c.Logger.Debug("opening storage", "backend", sc.Backend)
	switch sc.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendRedis:
		return redis.NewStore(ctx, redis.Config{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
			Prefix:   sc.Redis.Prefix,
		}, c.Logger)
	case config.BackendMongo:
		return mongo.NewStore(ctx, mongo.Config{URI: sc.Mongo.URI, Database: sc.Mongo.Database}, c.Logger)
	case config.BackendFile, "":
		return file.NewStore(sc.Dir, c.Logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

// openService opens storage behind a document service with an empty index.
// With restore, every persisted document is indexed. The caller closes the
// returned store.
func (c *CLI) openService(ctx context.Context, restore bool) (*docservice.Service, storage.Store, error) {
	store, err := c.openStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	svc := docservice.NewService(store, c.Logger)
	if !restore {
		return svc, store, nil
	}
	n, err := svc.Restore(ctx)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("restore documents: %w", err)
	}
	c.Logger.Debug("restored documents", "count", n, "backend", c.Config.Storage.Backend)
	return svc, store, nil
}

// newClient creates a document service client. An empty serverURL uses the
// configured one.
func (c *CLI) newClient(serverURL string, depth int) (*docservice.Client, error) {
	if serverURL == "" {
		serverURL = c.Config.Client.ServerURL
	}
	return docservice.NewClient(serverURL,
		docservice.WithLogger(c.Logger),
		docservice.WithDepth(depth),
		docservice.WithTimeout(c.Config.Client.Timeout.Duration),
	)
}

// fetcherSource is the fetcher that backs a controller.
type fetcherSource struct {
	fetcher expand.Fetcher
	close   func() error
	remote  bool
}

// openFetcher returns the remote service when serverURL is set. Otherwise
// documentID is indexed from local storage and served without HTTP.
func (c *CLI) openFetcher(ctx context.Context, serverURL, documentID string, depth int) (*fetcherSource, error) {
	if serverURL != "" {
		client, err := c.newClient(serverURL, depth)
		if err != nil {
			return nil, err
		}
		return &fetcherSource{fetcher: client, close: func() error { return nil }, remote: true}, nil
	}
	svc, store, err := c.openService(ctx, false)
	if err != nil {
		return nil, err
	}
	if _, err := svc.LoadByDocumentID(ctx, documentID); err != nil {
		store.Close()
		return nil, err
	}
	local := docservice.NewLocal(svc.Index)
	local.Depth = depth
	return &fetcherSource{fetcher: local, close: store.Close}, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(noCache || c.Config.Render.NoCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, c.Logger), nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Render.CacheDir == "" {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(c.Config.Render.CacheDir)
}

// concurrency returns the configured fetch concurrency.
func (c *CLI) concurrency() int {
	if n := c.Config.Client.Concurrency; n > 0 {
		return n
	}
	return expand.DefaultConcurrency
}

// requestTimeout is used for one-shot commands against storage.
const requestTimeout = 30 * time.Second
