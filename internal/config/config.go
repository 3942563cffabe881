// Package config loads the YAML configuration used by `weekcal serve`.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/weekcal/internal/constants"
)

const defaultServerConfigYAML = `# weekcal server configuration
listen: ":8080"

# Public URL calendar clients use to reach this server; feed links are built from it.
base_url: "http://localhost:8080"

metrics:
  enabled: true
  path: /metrics

sync:
  schedule: "@every 15m"
  on_start: true
  timeout: 30s
  max_concurrent: 4

planning:
  # How long after its fixed time a pinned task is still placed there before it is rescheduled.
  missed_grace: 15m

feed:
  token_ttl: 720h
  refresh: 5m
  rate_limit: 1
  burst: 5
`

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SyncConfig struct {
	// Schedule is a cron spec or descriptor such as "@every 15m"; empty disables periodic sync.
	Schedule      string        `yaml:"schedule"`
	OnStart       bool          `yaml:"on_start"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
}

type PlanningConfig struct {
	MissedGrace time.Duration `yaml:"missed_grace"`
}

type FeedConfig struct {
	TokenTTL time.Duration `yaml:"token_ttl"`
	Refresh  time.Duration `yaml:"refresh"`
	// RateLimit is the sustained requests per second allowed per token.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

type ServerConfig struct {
	Listen   string         `yaml:"listen"`
	BaseURL  string         `yaml:"base_url"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Sync     SyncConfig     `yaml:"sync"`
	Planning PlanningConfig `yaml:"planning"`
	Feed     FeedConfig     `yaml:"feed"`
}

// Default returns the configuration used when no file exists.
func Default() ServerConfig {
	var cfg ServerConfig
	if err := yaml.Unmarshal([]byte(defaultServerConfigYAML), &cfg); err != nil {
		panic(fmt.Sprintf("invalid built-in server config: %v", err))
	}
	cfg.applyDefaults()
	return cfg
}

// DefaultYAML is the commented template written by `weekcal init --server-config`.
func DefaultYAML() string {
	return defaultServerConfigYAML
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (ServerConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return ServerConfig{}, fmt.Errorf("read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse server config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault creates path with the default template unless it already exists.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(defaultServerConfigYAML), 0o600); err != nil {
		return false, fmt.Errorf("write server config: %w", err)
	}
	return true, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Sync.Timeout <= 0 {
		c.Sync.Timeout = constants.DefaultSyncTimeout
	}
	if c.Sync.MaxConcurrent <= 0 {
		c.Sync.MaxConcurrent = constants.DefaultMaxConcurrent
	}
	if c.Sync.MaxBodyBytes <= 0 {
		c.Sync.MaxBodyBytes = constants.DefaultMaxFeedBytes
	}
	if c.Planning.MissedGrace <= 0 {
		c.Planning.MissedGrace = constants.MissedFixedGrace
	}
	if c.Feed.TokenTTL <= 0 {
		c.Feed.TokenTTL = constants.DefaultFeedTokenTTL
	}
	if c.Feed.Refresh <= 0 {
		c.Feed.Refresh = constants.FeedRefreshInterval
	}
	if c.Feed.Burst <= 0 {
		c.Feed.Burst = 5
	}
}

func (c ServerConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	if c.Metrics.Path == "/feed/" || strings.HasPrefix(c.Metrics.Path, "/feed/") {
		return fmt.Errorf("metrics.path %q collides with the feed route", c.Metrics.Path)
	}
	if c.Sync.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			return fmt.Errorf("sync.schedule %q: %w", c.Sync.Schedule, err)
		}
	}
	if c.Feed.RateLimit < 0 {
		return fmt.Errorf("feed.rate_limit cannot be negative")
	}
	return nil
}
