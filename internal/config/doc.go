// Package config handles configuration loading for feedstore.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Anything the file leaves out keeps the value from Default.
//
// # Configuration File
//
// Location (in order):
//
//  1. Path from the --config flag
//  2. Path from FEEDSTORE_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/feedstore/config.yaml (~/.config on Linux)
//
// A missing file is not an error; the defaults are used.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	store:
//	  file: "${FEEDSTORE_DATA}/feeds.db"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Store:
//
//	store:
//	  driver: "bolt"          # bolt, sqlite
//	  file: "feedstore.db"
//	  expire: "none"          # none, days
//	  days: 7
//	  remove_expired: false   # allow `feedstore tidy` to delete expired items
//	  max: 0                  # slot capacity, 0 = unbounded
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Metrics:
//
//	metrics:
//	  enabled: false  # print counters to stderr on exit
//
// The same keys work in TOML:
//
//	[store]
//	driver = "sqlite"
//	max = 100
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(config.Path())
//	if err != nil {
//	    return err
//	}
//	opts, err := feedstore.ParseOptions(cfg.StoreOptions())
package config
