// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2389/feedstore/internal/kv"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
store:
  driver: sqlite
  file: "/var/lib/feedstore/feeds.db"
  expire: days
  days: 3
  remove_expired: true
  max: 500

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, "sqlite")
	}
	if cfg.Store.File != "/var/lib/feedstore/feeds.db" {
		t.Errorf("Store.File = %q", cfg.Store.File)
	}
	if cfg.Store.Expire != "days" {
		t.Errorf("Store.Expire = %q, want %q", cfg.Store.Expire, "days")
	}
	if cfg.Store.Days != 3 {
		t.Errorf("Store.Days = %d, want 3", cfg.Store.Days)
	}
	if !cfg.Store.RemoveExpired {
		t.Error("Store.RemoveExpired = false, want true")
	}
	if cfg.Store.Max != 500 {
		t.Errorf("Store.Max = %d, want 500", cfg.Store.Max)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
	if cfg.Driver() != kv.DriverSQLite {
		t.Errorf("Driver() = %q, want %q", cfg.Driver(), kv.DriverSQLite)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[store]
driver = "bolt"
file = "feeds.db"
expire = "days"
days = 14
max = 20

[logging]
level = "warn"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.File != "feeds.db" {
		t.Errorf("Store.File = %q, want %q", cfg.Store.File, "feeds.db")
	}
	if cfg.Store.Days != 14 {
		t.Errorf("Store.Days = %d, want 14", cfg.Store.Days)
	}
	if cfg.Store.Max != 20 {
		t.Errorf("Store.Max = %d, want 20", cfg.Store.Max)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
	// Unset in the file, so it keeps the default.
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
store:
  max: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := Default()
	if cfg.Store.File != def.Store.File {
		t.Errorf("Store.File = %q, want default %q", cfg.Store.File, def.Store.File)
	}
	if cfg.Store.Days != def.Store.Days {
		t.Errorf("Store.Days = %d, want default %d", cfg.Store.Days, def.Store.Days)
	}
	if cfg.Store.Max != 10 {
		t.Errorf("Store.Max = %d, want 10", cfg.Store.Max)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("FEEDSTORE_TEST_DATA", "/tmp/feeds")

	path := writeConfig(t, "config.yaml", `
store:
  file: "${FEEDSTORE_TEST_DATA}/feeds.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.File != "/tmp/feeds/feeds.db" {
		t.Errorf("Store.File = %q, want %q", cfg.Store.File, "/tmp/feeds/feeds.db")
	}
}

func TestLoad_UnsetEnvVarExpandsToEmpty(t *testing.T) {
	os.Unsetenv("FEEDSTORE_TEST_MISSING")

	path := writeConfig(t, "config.yaml", `
store:
  file: "${FEEDSTORE_TEST_MISSING}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail when store.file expands to empty")
	}
	if !strings.Contains(err.Error(), "store.file") {
		t.Errorf("error = %v, want mention of store.file", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Store.File != Default().Store.File {
		t.Errorf("Store.File = %q, want default", cfg.Store.File)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", "store: [unclosed")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail on invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Store.Driver = "leveldb" }, "store.driver"},
		{"empty file", func(c *Config) { c.Store.File = "" }, "store.file"},
		{"unknown expire", func(c *Config) { c.Store.Expire = "weekly" }, "store.expire"},
		{"negative days", func(c *Config) { c.Store.Days = -1 }, "store.days"},
		{"negative max", func(c *Config) { c.Store.Max = -1 }, "store.max"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestStoreOptions(t *testing.T) {
	cfg := Default()
	cfg.Store.File = "x.db"
	cfg.Store.Expire = "days"
	cfg.Store.Days = 2
	cfg.Store.RemoveExpired = true
	cfg.Store.Max = 9

	opts := cfg.StoreOptions()

	want := map[string]any{
		"db_file": "x.db",
		"expire":  "days",
		"days":    2,
		"rm_exp":  true,
		"max":     9,
	}
	for k, v := range want {
		if opts[k] != v {
			t.Errorf("StoreOptions()[%q] = %#v, want %#v", k, opts[k], v)
		}
	}
	if _, ok := opts["db_mod"]; ok {
		t.Error("StoreOptions() should not set db_mod")
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/feedstore.yaml")
	if got := Path(); got != "/etc/feedstore.yaml" {
		t.Errorf("Path() = %q, want %q", got, "/etc/feedstore.yaml")
	}

	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/home/test/.config")
	if got := Path(); got != filepath.Join("/home/test/.config", "feedstore", "config.yaml") {
		t.Errorf("Path() = %q", got)
	}
}
