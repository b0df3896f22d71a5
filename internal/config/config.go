// ABOUTME: Configuration loading and parsing for feedstore
// ABOUTME: Supports YAML or TOML files with environment variable expansion

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/2389/feedstore/internal/kv"
	"github.com/2389/feedstore/internal/retention"
)

// EnvConfigPath names the environment variable that overrides the config path.
const EnvConfigPath = "FEEDSTORE_CONFIG"

// Config represents the complete feedstore configuration
type Config struct {
	Store   StoreConfig   `yaml:"store" toml:"store"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// StoreConfig holds the local store settings
type StoreConfig struct {
	Driver        string `yaml:"driver" toml:"driver"`
	File          string `yaml:"file" toml:"file"`
	Expire        string `yaml:"expire" toml:"expire"`
	Days          int    `yaml:"days" toml:"days"`
	RemoveExpired bool   `yaml:"remove_expired" toml:"remove_expired"`
	Max           int    `yaml:"max" toml:"max"` // 0 means unbounded
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig controls the metrics dump printed on exit
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: string(kv.DefaultDriver),
			File:   kv.DefaultFile("feedstore"),
			Expire: retention.ExpireNone.String(),
			Days:   7,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Path returns the config file location: $FEEDSTORE_CONFIG if set, otherwise
// feedstore/config.yaml under the user config directory.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "feedstore", "config.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded first.
// Settings absent from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if _, err := kv.ParseDriver(c.Store.Driver); err != nil {
		return fmt.Errorf("store.driver: %w", err)
	}

	if c.Store.File == "" {
		return fmt.Errorf("store.file is required")
	}

	if _, err := retention.ParseExpireMode(c.Store.Expire); err != nil {
		return fmt.Errorf("store.expire: %w", err)
	}

	if c.Store.Days < 0 {
		return fmt.Errorf("store.days must not be negative, got %d", c.Store.Days)
	}

	if c.Store.Max < 0 {
		return fmt.Errorf("store.max must not be negative, got %d", c.Store.Max)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// Driver returns the configured kv driver. Call after Validate.
func (c *Config) Driver() kv.Driver {
	d, err := kv.ParseDriver(c.Store.Driver)
	if err != nil {
		return kv.DefaultDriver
	}
	return d
}

// StoreOptions returns the store section as the option map understood by
// feedstore.ParseOptions.
func (c *Config) StoreOptions() map[string]any {
	return map[string]any{
		"db_file": c.Store.File,
		"expire":  c.Store.Expire,
		"days":    c.Store.Days,
		"rm_exp":  c.Store.RemoveExpired,
		"max":     c.Store.Max,
	}
}
