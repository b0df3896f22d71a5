// ABOUTME: SQLite implementation of the delegated feed store Backend
// ABOUTME: Append-only feed_items table keyed by UUID and indexed by (tag, created_at)

package sqlbackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	_ "modernc.org/sqlite"

	"github.com/2389/feedstore/internal/feed"
	"github.com/2389/feedstore/internal/feedstore"
)

// DefaultFile is used when Open is given no file.
const DefaultFile = "feedstore-ext.db"

// ErrNotOpen is returned by Insert and Retrieve before Open.
var ErrNotOpen = errors.New("sql backend not open")

// Backend stores delegated feed items in SQLite.
type Backend struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ feedstore.Backend = (*Backend)(nil)

// New returns an unopened backend. A nil logger means slog.Default().
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		logger: logger.With("component", "sqlbackend"),
	}
}

// Open opens the database named by opts.File, creating it and its parent
// directory if needed. Opening the file that is already open is a no-op; a
// different file replaces the current one.
func (b *Backend) Open(ctx context.Context, opts feedstore.Options) error {
	path := opts.File
	if path == "" {
		path = DefaultFile
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		if b.path == path {
			return nil
		}
		b.closeLocked()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS feed_items (
			id          TEXT PRIMARY KEY,
			tag         TEXT NOT NULL,
			title       TEXT NOT NULL,
			link        TEXT NOT NULL,
			description TEXT NOT NULL,
			creator     TEXT NOT NULL DEFAULT '',
			created_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_feed_items_tag_created
			ON feed_items(tag, created_at);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("creating schema: %w", err)
	}

	b.db = db
	b.path = path
	b.logger.Info("sql backend opened", "path", path)
	return nil
}

func (b *Backend) handle() (*sql.DB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil, ErrNotOpen
	}
	return b.db, nil
}

// Insert appends item under tag.
func (b *Backend) Insert(ctx context.Context, tag string, item feed.Item) error {
	db, err := b.handle()
	if err != nil {
		return err
	}

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("feed_items").
		Cols("id", "tag", "title", "link", "description", "creator", "created_at").
		Values(
			uuid.New().String(),
			tag,
			item.Title,
			item.Link,
			item.Description,
			item.Creator,
			item.CreatedAt,
		)
	query, args := ib.BuildWithFlavor(sqlbuilder.SQLite)

	_, err = db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// Retrieve returns tag's items, oldest first.
func (b *Backend) Retrieve(ctx context.Context, tag string) ([]feed.Item, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("title", "link", "description", "creator", "created_at").From("feed_items")
	sb.Where(sb.Equal("tag", tag))
	sb.OrderBy("created_at", "rowid").Asc()
	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []feed.Item
	for rows.Next() {
		var it feed.Item
		if err := rows.Scan(&it.Title, &it.Link, &it.Description, &it.Creator, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// Close closes the database. name is only logged. Closing an unopened
// backend is a no-op.
func (b *Backend) Close(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	b.logger.Info("sql backend closing", "path", b.path, "name", name)
	return b.closeLocked()
}

func (b *Backend) closeLocked() error {
	err := b.db.Close()
	b.db = nil
	if err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

func (b *Backend) String() string {
	return "sqlite"
}
