// Package config loads docmap settings.
//
// Values are resolved in order: built-in defaults, the TOML file
// ($XDG_CONFIG_HOME/docmap/config.toml unless a path is given), then
// DOCMAP_* environment variables. [Config.Validate] runs last.
//
//	[server]
//	addr = ":8000"
//	write_timeout = "60s"
//
//	[storage]
//	backend = "redis"
//
//	[storage.redis]
//	addr = "localhost:6379"
//
//	[client]
//	server_url = "http://localhost:8000"
//	concurrency = 8
//
//	[layout]
//	node_width = 300
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/docmap/pkg/core/layout"
	"github.com/matzehuels/docmap/pkg/errors"
)

const appName = "docmap"

// Storage backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

var backends = []string{BackendFile, BackendMemory, BackendRedis, BackendMongo}

// Config is the full docmap configuration.
type Config struct {
	Server  Server          `toml:"server"`
	Storage Storage         `toml:"storage"`
	Client  Client          `toml:"client"`
	Layout  layout.Geometry `toml:"layout"`
	Render  Render          `toml:"render"`
}

// Server configures the document service.
type Server struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	IdleTimeout  Duration `toml:"idle_timeout"`
	// MaxBodyBytes limits import and update request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// Storage selects and configures the persistence backend.
type Storage struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"` // file backend
	Redis   Redis  `toml:"redis"`
	Mongo   Mongo  `toml:"mongo"`
}

type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

type Mongo struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Client configures how the CLI talks to a document service.
type Client struct {
	ServerURL   string   `toml:"server_url"`
	Timeout     Duration `toml:"timeout"`
	Concurrency int      `toml:"concurrency"`
	Depth       int      `toml:"depth"`
}

// Render configures diagram output.
type Render struct {
	Detailed bool   `toml:"detailed"`
	CacheDir string `toml:"cache_dir"`
	NoCache  bool   `toml:"no_cache"`
}

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:         ":8000",
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{60 * time.Second},
			IdleTimeout:  Duration{120 * time.Second},
			MaxBodyBytes: 50 << 20,
		},
		Storage: Storage{
			Backend: BackendFile,
			Dir:     filepath.Join(dataDir(), "documents"),
			Redis:   Redis{Addr: "localhost:6379", Prefix: appName},
			Mongo:   Mongo{URI: "mongodb://localhost:27017", Database: appName},
		},
		Client: Client{
			ServerURL:   "http://localhost:8000",
			Timeout:     Duration{30 * time.Second},
			Concurrency: 4,
			Depth:       1,
		},
		Layout: layout.DefaultGeometry(),
		Render: Render{CacheDir: filepath.Join(cacheDir(), "render")},
	}
}

// Load reads the config at path, or the default location when path is
// empty. A missing default file is not an error; a missing explicit one is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	} else if explicit {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	envOr := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	envOr("DOCMAP_ADDR", &c.Server.Addr)
	envOr("DOCMAP_STORAGE", &c.Storage.Backend)
	envOr("DOCMAP_DOCUMENTS_DIR", &c.Storage.Dir)
	envOr("DOCMAP_REDIS_ADDR", &c.Storage.Redis.Addr)
	envOr("DOCMAP_REDIS_PASSWORD", &c.Storage.Redis.Password)
	envOr("DOCMAP_MONGO_URI", &c.Storage.Mongo.URI)
	envOr("DOCMAP_SERVER_URL", &c.Client.ServerURL)
	if v := getenv("DOCMAP_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Client.Concurrency = n
		}
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "server.addr is empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server.max_body_bytes must be positive")
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "storage.dir is required for the file backend")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "storage.redis.addr is required for the redis backend")
		}
	case BackendMongo:
		if c.Storage.Mongo.URI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "storage.mongo.uri is required for the mongo backend")
		}
	case BackendMemory:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown storage backend %q (want one of %s)",
			c.Storage.Backend, strings.Join(backends, ", "))
	}

	if err := errors.ValidateURL(c.Client.ServerURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "client.server_url")
	}
	if c.Client.Concurrency < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "client.concurrency must be at least 1")
	}
	if c.Client.Depth < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "client.depth must not be negative")
	}
	if c.Client.Timeout.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "client.timeout must be positive")
	}
	return c.Layout.Validate()
}

// Encode writes cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Backends lists the supported storage backends.
func Backends() []string { return slices.Clone(backends) }

// DefaultPath is $XDG_CONFIG_HOME/docmap/config.toml, falling back to
// ~/.config/docmap/config.toml.
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "config.toml")
}

func dataDir() string  { return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")) }
func cacheDir() string { return xdgDir("XDG_CACHE_HOME", ".cache") }

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, fallback, appName)
}
