// Package config loads agentwire configuration from
// .agentwire/config.yaml, with defaults and AGENTWIRE_* environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all agentwire configuration.
type Config struct {
	Name string `yaml:"name"`

	// Backend is the model-serving endpoint the run command streams from.
	Backend BackendConfig `yaml:"backend"`

	// Project describes the local file repository tools execute against.
	Project ProjectConfig `yaml:"project"`

	// Archive configures turn persistence.
	Archive ArchiveConfig `yaml:"archive"`

	// Watcher configures filesystem change notifications.
	Watcher WatcherConfig `yaml:"watcher"`

	// Logging configures categorized debug logging.
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the streaming backend.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// ProjectConfig configures the local project repository.
type ProjectConfig struct {
	ID   string `yaml:"id"`
	Root string `yaml:"root"`
}

// ArchiveConfig configures the SQLite turn archive.
type ArchiveConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// WatcherConfig configures the project file watcher.
type WatcherConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Debounce string `yaml:"debounce"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Name: "agentwire",
		Backend: BackendConfig{
			BaseURL: "http://localhost:8787",
			Timeout: "120s",
		},
		Project: ProjectConfig{
			ID:   "default",
			Root: ".",
		},
		Archive: ArchiveConfig{
			Enabled:      true,
			DatabasePath: ".agentwire/turns.db",
		},
		Watcher: WatcherConfig{
			Enabled:  true,
			Debounce: "250ms",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Path returns the config file location under the given workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".agentwire", "config.yaml")
}

// Load reads the config for a workspace, applying defaults for anything not
// set and environment overrides on top. A missing file is not an error.
func Load(workspace string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config back to the workspace.
func (c *Config) Save(workspace string) error {
	path := Path(workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets the environment win over the file, which keeps
// secrets out of checked-in config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AGENTWIRE_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("AGENTWIRE_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("AGENTWIRE_PROJECT_ROOT"); v != "" {
		c.Project.Root = v
	}
	if v := os.Getenv("AGENTWIRE_PROJECT_ID"); v != "" {
		c.Project.ID = v
	}
	if v := os.Getenv("AGENTWIRE_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// BackendTimeout parses the backend timeout, falling back to two minutes.
func (c *Config) BackendTimeout() time.Duration {
	return parseDuration(c.Backend.Timeout, 2*time.Minute)
}

// WatcherDebounce parses the watcher debounce window.
func (c *Config) WatcherDebounce() time.Duration {
	return parseDuration(c.Watcher.Debounce, 250*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
