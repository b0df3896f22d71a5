// ABOUTME: In-memory Backend implementation for testing delegated tags
// ABOUTME: Supports injected failures and panics per operation

package feedstore

import (
	"context"
	"errors"
	"sync"

	"github.com/2389/feedstore/internal/feed"
)

// ErrMockFailure is returned by MockBackend operations configured to fail.
var ErrMockFailure = errors.New("mock backend failure")

// MockBackend is an in-memory Backend for testing. Items are returned in
// insertion order, without any sorting, expiry or capacity limit.
type MockBackend struct {
	mu     sync.Mutex
	items  map[string][]feed.Item // keyed by tag
	opened []Options
	closed []string

	// FailOn makes the named operation ("open", "insert", "retrieve",
	// "close") return ErrMockFailure.
	FailOn map[string]bool
	// PanicOn makes the named operation panic.
	PanicOn map[string]bool
}

// NewMockBackend creates an empty MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		items:   make(map[string][]feed.Item),
		FailOn:  make(map[string]bool),
		PanicOn: make(map[string]bool),
	}
}

func (m *MockBackend) check(op string) error {
	if m.PanicOn[op] {
		panic("mock backend: " + op)
	}
	if m.FailOn[op] {
		return ErrMockFailure
	}
	return nil
}

// Open records the options it was called with.
func (m *MockBackend) Open(ctx context.Context, opts Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("open"); err != nil {
		return err
	}
	m.opened = append(m.opened, opts)
	return nil
}

// Insert appends item to tag.
func (m *MockBackend) Insert(ctx context.Context, tag string, item feed.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("insert"); err != nil {
		return err
	}
	m.items[tag] = append(m.items[tag], item)
	return nil
}

// Retrieve returns a copy of tag's items in insertion order.
func (m *MockBackend) Retrieve(ctx context.Context, tag string) ([]feed.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("retrieve"); err != nil {
		return nil, err
	}
	out := make([]feed.Item, len(m.items[tag]))
	copy(out, m.items[tag])
	return out, nil
}

// Close records name.
func (m *MockBackend) Close(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("close"); err != nil {
		return err
	}
	m.closed = append(m.closed, name)
	return nil
}

// Opened returns the options of every successful Open.
func (m *MockBackend) Opened() []Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Options(nil), m.opened...)
}

// Closed returns the names passed to every successful Close.
func (m *MockBackend) Closed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.closed...)
}

func (m *MockBackend) String() string {
	return "mock"
}
