// Package config loads stuckpick settings from ~/.stuckpick/config.yaml and
// STUCKPICK_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/stuckpick/internal/pathutil"
)

// DefaultDataDir is used when no data_dir is configured. Relative paths are
// resolved against the working directory.
const DefaultDataDir = "data"

// StuckpickConfig contains all stuckpick configuration settings.
type StuckpickConfig struct {
	// DataDir is the directory scanned for *.csv lists.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	History   HistoryConfig   `json:"history" yaml:"history"`
	Watch     WatchConfig     `json:"watch" yaml:"watch"`
	Selection SelectionConfig `json:"selection" yaml:"selection"`
}

// LoggingConfig configures stderr logging and the decision trace.
type LoggingConfig struct {
	// Level is "warn", "info" (default), "debug" or "trace".
	// "debug" and "trace" also write decisions.jsonl.
	Level string `json:"level" yaml:"level"`
}

// HistoryConfig configures the SQLite feedback log.
type HistoryConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path of the database file. Empty means history.db in the state directory.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// WatchConfig configures automatic reloads while a long-running mode is open.
type WatchConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// SelectionConfig configures the random source.
type SelectionConfig struct {
	// Seed fixes the random sequence when non-zero.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// Default returns a StuckpickConfig with sensible defaults.
func Default() *StuckpickConfig {
	return &StuckpickConfig{
		DataDir: DefaultDataDir,
		Logging: LoggingConfig{Level: "info"},
		History: HistoryConfig{Enabled: true},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 250 * time.Millisecond,
		},
	}
}

// DefaultPath returns ~/.stuckpick/config.yaml.
func DefaultPath() (string, error) {
	state, err := pathutil.UserStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(state, "config.yaml"), nil
}

// Load loads configuration from the default location and the environment.
// Order: defaults -> ~/.stuckpick/config.yaml -> environment variables
func Load() (*StuckpickConfig, error) {
	path, err := DefaultPath()
	if err != nil {
		cfg := Default()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return LoadPath(path)
}

// LoadPath is Load with an explicit file. A missing file is not an error.
func LoadPath(path string) (*StuckpickConfig, error) {
	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file. Unset keys keep
// their defaults and ${VAR} references in paths are expanded.
func LoadFromFile(path string) (*StuckpickConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.DataDir = expandEnvVars(cfg.DataDir)
	cfg.History.Path = expandEnvVars(cfg.History.Path)
	return cfg, nil
}

// Save writes cfg as YAML to path, creating the parent directory.
func Save(cfg *StuckpickConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *StuckpickConfig) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir must not be empty")
	}

	validLevels := map[string]bool{"warn": true, "info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be non-negative, got %v", c.Watch.Debounce)
	}
	return nil
}

// Keys lists the dot-notation keys understood by Get and Set, sorted.
func Keys() []string {
	keys := []string{
		"data_dir",
		"logging.level",
		"history.enabled",
		"history.path",
		"watch.enabled",
		"watch.debounce",
		"selection.seed",
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value for a dot-notation key.
func (c *StuckpickConfig) Get(key string) (any, bool) {
	switch key {
	case "data_dir":
		return c.DataDir, true
	case "logging.level":
		return c.Logging.Level, true
	case "history.enabled":
		return c.History.Enabled, true
	case "history.path":
		return c.History.Path, true
	case "watch.enabled":
		return c.Watch.Enabled, true
	case "watch.debounce":
		return c.Watch.Debounce.String(), true
	case "selection.seed":
		return c.Selection.Seed, true
	default:
		return nil, false
	}
}

// Set assigns a value given as text to a dot-notation key and validates the
// result. On error the config is left unchanged.
func (c *StuckpickConfig) Set(key, value string) error {
	next := *c
	switch key {
	case "data_dir":
		next.DataDir = value
	case "logging.level":
		next.Logging.Level = value
	case "history.enabled":
		next.History.Enabled = parseBool(value)
	case "history.path":
		next.History.Path = value
	case "watch.enabled":
		next.Watch.Enabled = parseBool(value)
	case "watch.debounce":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		next.Watch.Debounce = d
	case "selection.seed":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %s (must be a non-negative integer)", value)
		}
		next.Selection.Seed = n
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *StuckpickConfig) {
	if v := os.Getenv("STUCKPICK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("STUCKPICK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STUCKPICK_HISTORY"); v != "" {
		cfg.History.Enabled = parseBool(v)
	}
	if v := os.Getenv("STUCKPICK_WATCH"); v != "" {
		cfg.Watch.Enabled = parseBool(v)
	}
	if v := os.Getenv("STUCKPICK_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Selection.Seed = n
		}
	}
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
