// ABOUTME: SQLite implementation of the kv Store using modernc.org/sqlite
// ABOUTME: A single items table keyed by (tag, slot) with upsert on put

package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/2389/feedstore/internal/feed"
)

// SQLiteStore implements Store on a SQLite file.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens or creates a SQLite store at path. Parent directories are
// created if needed. A nil logger means slog.Default().
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	logger = componentLogger(logger, DriverSQLite)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Writes come from a single owner; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS items (
			tag         TEXT NOT NULL,
			slot        INTEGER NOT NULL,
			title       TEXT NOT NULL,
			link        TEXT NOT NULL,
			description TEXT NOT NULL,
			creator     TEXT NOT NULL DEFAULT '',
			created_at  INTEGER NOT NULL,
			PRIMARY KEY (tag, slot)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("sqlite store opened", "path", path)
	return &SQLiteStore{
		db:     db,
		path:   path,
		logger: logger,
	}, nil
}

func (s *SQLiteStore) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

// Put writes item at (tag, slot).
func (s *SQLiteStore) Put(ctx context.Context, tag string, slot uint64, item feed.Item) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO items (tag, slot, title, link, description, creator, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tag, slot) DO UPDATE SET
			title = excluded.title,
			link = excluded.link,
			description = excluded.description,
			creator = excluded.creator,
			created_at = excluded.created_at
	`
	_, err = db.ExecContext(ctx, query,
		tag,
		int64(slot),
		item.Title,
		item.Link,
		item.Description,
		item.Creator,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving %s/%d: %w", tag, slot, err)
	}
	return nil
}

// ForEach visits every stored entry.
func (s *SQLiteStore) ForEach(ctx context.Context, fn VisitFunc) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT tag, slot, title, link, description, creator, created_at
		FROM items
	`)
	if err != nil {
		return fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	// Collect first so fn runs without holding the only connection.
	type entry struct {
		tag  string
		slot int64
		item feed.Item
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(
			&e.tag,
			&e.slot,
			&e.item.Title,
			&e.item.Link,
			&e.item.Description,
			&e.item.Creator,
			&e.item.CreatedAt,
		); err != nil {
			return fmt.Errorf("scanning item: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating items: %w", err)
	}
	rows.Close()

	for _, e := range entries {
		if err := fn(e.tag, uint64(e.slot), e.item); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes (tag, slot).
func (s *SQLiteStore) Delete(ctx context.Context, tag string, slot uint64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM items WHERE tag = ? AND slot = ?", tag, int64(slot)); err != nil {
		return fmt.Errorf("deleting %s/%d: %w", tag, slot, err)
	}
	return nil
}

// Close closes the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	s.logger.Debug("sqlite store closed", "path", s.path)
	return nil
}

// IsValidSQLiteFile reports whether path is a SQLite database, or
// absent/empty.
func IsValidSQLiteFile(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	if err != nil {
		return true
	}
	if info.IsDir() {
		return false
	}
	if info.Size() == 0 {
		return true
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return true
	}
	defer db.Close()

	var version int
	if err := db.QueryRow("PRAGMA schema_version").Scan(&version); err != nil {
		return !isNotADatabase(err)
	}
	return true
}

// isNotADatabase checks for SQLITE_NOTADB.
func isNotADatabase(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "file is not a database") ||
		strings.Contains(errStr, "(26)")
}
