package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the recognized option set.
type Config struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// Parallel is the synchronizer worker count.
	Parallel int `toml:"parallel"`

	// ParallelConnections sizes the transport connection pool.
	ParallelConnections int `toml:"parallel_connections"`

	// TimeoutSeconds is the per-request network timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`

	UseHTTP2 bool `toml:"use_http2"`

	PrefetchWorkers int `toml:"prefetch_workers"`
	UploadWorkers   int `toml:"upload_workers"`
	QueueSize       int `toml:"queue_size"`
}

// DefaultPath returns the user-level config file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "blackbird", "config.toml")
	}
	return ""
}

// Load reads path, layering it over the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// normalize clamps unset values back to their defaults.
func (c *Config) normalize() {
	d := Default()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.Parallel == 0 {
		c.Parallel = d.Parallel
	}
	if c.ParallelConnections == 0 {
		c.ParallelConnections = d.ParallelConnections
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = d.TimeoutSeconds
	}
	if c.PrefetchWorkers == 0 {
		c.PrefetchWorkers = d.PrefetchWorkers
	}
	if c.UploadWorkers == 0 {
		c.UploadWorkers = d.UploadWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = d.QueueSize
	}
}

// Validate rejects values no operation could run with.
func (c Config) Validate() error {
	if c.Parallel < 1 {
		return errors.New("parallel must be at least 1")
	}
	if c.ParallelConnections < 1 {
		return errors.New("parallel_connections must be at least 1")
	}
	if c.TimeoutSeconds < 1 {
		return errors.New("timeout_seconds must be at least 1")
	}
	if c.PrefetchWorkers < 1 || c.UploadWorkers < 1 {
		return errors.New("worker counts must be at least 1")
	}
	if c.QueueSize < 1 {
		return errors.New("queue_size must be at least 1")
	}
	return nil
}
