package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains tier and state directory configuration.
type Paths struct {
	// FastDir is the space-constrained staging volume where downloads land.
	FastDir string `toml:"fast_dir"`
	// CapacityDir is the long-term retention volume. Items are routed into
	// a per-label subdirectory beneath it.
	CapacityDir string `toml:"capacity_dir"`
	// StateDir holds the relocation queue database and lease lock files.
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Space contains free-space reclamation settings for the fast tier.
type Space struct {
	// ThresholdGiB is the free-space floor. When fast-tier free space drops
	// below it, the oldest completed items are relocated until the gap closes.
	ThresholdGiB int `toml:"threshold_gib"`
}

// Copy contains transfer behavior settings.
type Copy struct {
	RetryAttempts int  `toml:"retry_attempts"`
	Verification  bool `toml:"verification"`
}

// Controller contains connection settings for the download controller.
type Controller struct {
	// URL accepts scgi://host:port or an absolute unix socket path.
	URL                string `toml:"url"`
	ConnectTimeout     int    `toml:"connect_timeout"`
	FetchTimeout       int    `toml:"fetch_timeout"`
	FetchRetryAttempts int    `toml:"fetch_retry_attempts"`
}

// Workers bounds concurrent relocation worker processes.
type Workers struct {
	MaxConcurrent int `toml:"max_concurrent"`
}

// Notifications controls post-relocation library rescan calls.
type Notifications struct {
	Enabled        bool `toml:"enabled"`
	RequestTimeout int  `toml:"request_timeout"`
}

// Arr describes one downstream library service (Sonarr or Radarr).
type Arr struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
	// Label is the controller-side routing tag that maps an item to this service.
	Label string `toml:"label"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shuttle.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Space         Space         `toml:"space"`
	Copy          Copy          `toml:"copy"`
	Controller    Controller    `toml:"controller"`
	Workers       Workers       `toml:"workers"`
	Notifications Notifications `toml:"notifications"`
	Sonarr        Arr           `toml:"sonarr"`
	Radarr        Arr           `toml:"radarr"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shuttle/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shuttle.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for shuttle operation.
// CapacityDir is created on a best-effort basis so read-only commands still
// work when the capacity volume is temporarily offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.LockDir(), c.WorkerLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.CapacityDir) != "" {
		_ = os.MkdirAll(c.Paths.CapacityDir, 0o755)
	}
	return nil
}

// LockDir returns the directory holding lease lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// WorkerLogDir returns the directory detached workers log into.
func (c *Config) WorkerLogDir() string {
	return filepath.Join(c.Paths.LogDir, "workers")
}

// QueueDBPath returns the location of the relocation queue database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
