// Package testsupport provides shared helpers for shuttle's tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"shuttle/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.FastDir = filepath.Join(base, "fast")
	cfg.Paths.CapacityDir = filepath.Join(base, "capacity")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Controller.URL = filepath.Join(base, "rtorrent.sock")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithThreshold sets the fast-tier free space floor in GiB.
func WithThreshold(gib int) ConfigOption {
	return func(c *config.Config) {
		c.Space.ThresholdGiB = gib
	}
}

// WithMaxWorkers bounds concurrent relocation workers on the test config.
func WithMaxWorkers(n int) ConfigOption {
	return func(c *config.Config) {
		c.Workers.MaxConcurrent = n
	}
}

// WithArr points the named service at a test server.
func WithArr(name, url, apiKey, label string) ConfigOption {
	return func(c *config.Config) {
		arr := config.Arr{URL: url, APIKey: apiKey, Label: label}
		switch name {
		case "radarr":
			c.Radarr = arr
		default:
			c.Sonarr = arr
		}
	}
}
