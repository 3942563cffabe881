package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Sync.Schedule != "@every 15m" || !cfg.Sync.OnStart {
		t.Errorf("unexpected sync defaults: %+v", cfg.Sync)
	}
	if cfg.Sync.Timeout != 30*time.Second {
		t.Errorf("Sync.Timeout = %v", cfg.Sync.Timeout)
	}
	if cfg.Feed.TokenTTL != 720*time.Hour || cfg.Feed.Refresh != 5*time.Minute {
		t.Errorf("unexpected feed defaults: %+v", cfg.Feed)
	}
	if cfg.Planning.MissedGrace != 15*time.Minute {
		t.Errorf("Planning.MissedGrace = %v", cfg.Planning.MissedGrace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := `
listen: "127.0.0.1:9000"
base_url: "https://cal.example.com"
metrics:
  enabled: false
sync:
  schedule: "*/5 * * * *"
  timeout: 10s
planning:
  missed_grace: 30m
feed:
  rate_limit: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9000" || cfg.BaseURL != "https://cal.example.com" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should be disabled")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics path default lost: %q", cfg.Metrics.Path)
	}
	if cfg.Sync.Timeout != 10*time.Second || cfg.Sync.MaxConcurrent != 4 {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if cfg.Planning.MissedGrace != 30*time.Minute {
		t.Errorf("Planning.MissedGrace = %v", cfg.Planning.MissedGrace)
	}
	if cfg.Feed.RateLimit != 0.5 || cfg.Feed.Burst != 5 {
		t.Errorf("feed = %+v", cfg.Feed)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "listen: [unterminated"},
		{"relative base url", `base_url: "cal.example.com"`},
		{"bad schedule", `sync: {schedule: "every now and then"}`},
		{"metrics path", `metrics: {path: "metrics"}`},
		{"metrics on feed route", `metrics: {path: "/feed/metrics"}`},
		{"negative rate", `feed: {rate_limit: -1}`},
		{"bad duration", `sync: {timeout: "soon"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "server.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")

	created, err := WriteDefault(path)
	if err != nil || !created {
		t.Fatalf("WriteDefault = %v, %v", created, err)
	}
	created, err = WriteDefault(path)
	if err != nil || created {
		t.Errorf("second WriteDefault should be a no-op, got %v, %v", created, err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of written template failed: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
}
