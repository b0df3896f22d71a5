// ABOUTME: Backend store interface for (tag, slot) keyed feed items
// ABOUTME: Driver selection, default file naming and file validation entry points

package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/feedstore/internal/feed"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kv store closed")

// ErrUnknownDriver is returned for an unrecognised driver name.
var ErrUnknownDriver = errors.New("unknown kv driver")

// Driver names a Store implementation.
type Driver string

const (
	DriverBolt   Driver = "bolt"
	DriverSQLite Driver = "sqlite"
)

// DefaultDriver is used when no driver is configured.
const DefaultDriver = DriverBolt

// VisitFunc is called once per stored entry. Returning an error stops the scan.
type VisitFunc func(tag string, slot uint64, item feed.Item) error

// Store is a durable (tag, slot) -> item mapping.
type Store interface {
	// Put writes item at (tag, slot), replacing whatever was there.
	Put(ctx context.Context, tag string, slot uint64, item feed.Item) error
	// ForEach visits every entry. Order is unspecified.
	ForEach(ctx context.Context, fn VisitFunc) error
	// Delete removes (tag, slot). Deleting a missing key is not an error.
	Delete(ctx context.Context, tag string, slot uint64) error
	// Close releases the file. Closing twice is a no-op.
	Close() error
}

// ParseDriver parses a driver name. The empty string selects DefaultDriver.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultDriver, nil
	case "bolt", "bbolt", "boltdb":
		return DriverBolt, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, s)
	}
}

// Open opens or creates the store file at path with the given driver.
// A nil logger means slog.Default().
func Open(driver Driver, path string, logger *slog.Logger) (Store, error) {
	switch driver {
	case DriverBolt, "":
		return OpenBolt(path, logger)
	case DriverSQLite:
		return OpenSQLite(path, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// IsValidFile reports whether path holds a store of the driver's format, or
// nothing yet.
func IsValidFile(driver Driver, path string) bool {
	switch driver {
	case DriverBolt, "":
		return IsValidBoltFile(path)
	case DriverSQLite:
		return IsValidSQLiteFile(path)
	default:
		return false
	}
}

// DefaultFile derives the store file name from a well-known store name.
func DefaultFile(name string) string {
	return name + ".db"
}

func componentLogger(logger *slog.Logger, driver Driver) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "kv", "driver", driver)
}
