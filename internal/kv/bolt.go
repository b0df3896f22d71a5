// ABOUTME: bbolt implementation of the kv Store, the feed store's default backend
// ABOUTME: One bucket of protobuf-encoded items keyed by encoded (tag, slot)

package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/2389/feedstore/internal/feed"
)

const bucketItems = "items"

// BoltOptions are the options every bolt file is opened with.
var BoltOptions = &bolt.Options{
	Timeout: 1 * time.Second,
}

// BoltStore implements Store on a single bbolt file.
type BoltStore struct {
	mu     sync.Mutex
	db     *bolt.DB
	path   string
	logger *slog.Logger
}

// OpenBolt opens or creates a bolt store at path. Parent directories are
// created if needed. A nil logger means slog.Default().
func OpenBolt(path string, logger *slog.Logger) (*BoltStore, error) {
	logger = componentLogger(logger, DriverBolt)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, BoltOptions)
	if err != nil {
		return nil, fmt.Errorf("opening bolt file %q: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketItems)); err != nil {
			return fmt.Errorf("creating bucket %q: %w", bucketItems, err)
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("bolt store opened", "path", path)
	return &BoltStore{
		db:     db,
		path:   path,
		logger: logger,
	}, nil
}

func (s *BoltStore) handle(ctx context.Context) (*bolt.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

// Put writes item at (tag, slot).
func (s *BoltStore) Put(ctx context.Context, tag string, slot uint64, item feed.Item) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketItems))
		if err != nil {
			return err
		}
		if err := b.Put(encodeKey(tag, slot), encodeItem(item)); err != nil {
			return fmt.Errorf("saving %s/%d: %w", tag, slot, err)
		}
		return nil
	})
}

// ForEach visits every stored entry in key order.
func (s *BoltStore) ForEach(ctx context.Context, fn VisitFunc) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketItems))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			tag, slot, err := decodeKey(k)
			if err != nil {
				return err
			}
			item, err := decodeItem(v)
			if err != nil {
				return fmt.Errorf("%s/%d: %w", tag, slot, err)
			}
			if err := fn(tag, slot, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes (tag, slot).
func (s *BoltStore) Delete(ctx context.Context, tag string, slot uint64) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketItems))
		if b == nil {
			return nil
		}
		return b.Delete(encodeKey(tag, slot))
	})
}

// Close closes the bolt file. It is safe to call more than once.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	s.logger.Debug("bolt store closed", "path", s.path)
	return nil
}

// IsValidBoltFile reports whether path is a bolt file, or absent/empty.
func IsValidBoltFile(path string) bool {
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

	db, err := bolt.Open(path, 0600, &bolt.Options{ReadOnly: true, Timeout: 100 * time.Millisecond})
	if err == nil {
		db.Close()
		return true
	}
	// Held by another process, or unreadable: not a format problem.
	if errors.Is(err, bolt.ErrTimeout) || errors.Is(err, fs.ErrPermission) {
		return true
	}
	return false
}
