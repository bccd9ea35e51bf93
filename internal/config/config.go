// Package config loads host configuration for the database access core:
// logging, plugin discovery, pool ceilings and blob export settings.
//
// Configuration is a single YAML file. Every field has a working default so
// a missing file is not an error.
package config

import (
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/mosaic-db/mosaic/internal/blobstore"
	"github.com/mosaic-db/mosaic/internal/errs"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Log     LogConfig        `yaml:"log"`
	Plugins PluginConfig     `yaml:"plugins"`
	Pool    PoolConfig       `yaml:"pool"`
	Blob    blobstore.Config `yaml:"blob"`
}

// LogConfig controls the process-wide logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
}

// PluginConfig controls out-of-process driver discovery.
type PluginConfig struct {
	// Dir is the directory scanned for plugin subdirectories. Each
	// subdirectory must contain a manifest.json next to its executable.
	Dir string `yaml:"dir"`

	// Enabled lists the plugin ids to load. Empty means load everything
	// found under Dir.
	Enabled []string `yaml:"enabled"`

	// StartTimeout bounds how long a freshly spawned plugin gets to
	// answer its first call.
	StartTimeout time.Duration `yaml:"start_timeout"`
}

// PoolConfig sets ceilings applied to every connection pool.
type PoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Plugins: PluginConfig{
			Dir:          "plugins",
			StartTimeout: 10 * time.Second,
		},
		Pool: PoolConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
	}
}

// Load reads the YAML file at path and merges it over Default.
// A missing file returns the defaults without error; a malformed file does not.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "reading config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "parsing config file", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks fields whose bad values would only surface much later.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console", "":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown log format %q", c.Log.Format)
	}
	if c.Pool.MaxOpenConns < 0 || c.Pool.MaxIdleConns < 0 {
		return errs.New(errs.ErrKindInvalidInput, "pool ceilings must not be negative")
	}
	return nil
}
