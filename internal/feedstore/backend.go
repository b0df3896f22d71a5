// ABOUTME: Delegated backend contract and tag type for the feed store
// ABOUTME: Calls into backends are guarded so failures and panics become errors

package feedstore

import (
	"context"
	"fmt"

	"github.com/2389/feedstore/internal/feed"
)

// Backend is an external store that delegated tags are forwarded to.
// Implementations are called from the store's worker, one call at a time.
type Backend interface {
	Open(ctx context.Context, opts Options) error
	Insert(ctx context.Context, tag string, item feed.Item) error
	Retrieve(ctx context.Context, tag string) ([]feed.Item, error)
	Close(ctx context.Context, name string) error
}

// Tag names a feed channel. A tag with a Backend is delegated: every
// operation on it goes to that backend instead of the local store.
type Tag struct {
	Name    string
	Backend Backend
}

// LocalTag returns a tag served by the local store.
func LocalTag(name string) Tag {
	return Tag{Name: name}
}

// DelegatedTag returns a tag served by backend.
func DelegatedTag(backend Backend, name string) Tag {
	return Tag{Name: name, Backend: backend}
}

// Delegated reports whether the tag is forwarded to an external backend.
func (t Tag) Delegated() bool {
	return t.Backend != nil
}

func (t Tag) String() string {
	if t.Delegated() {
		return fmt.Sprintf("%T/%s", t.Backend, t.Name)
	}
	return t.Name
}

// guard runs fn and converts a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return fn()
}

// guardValue is guard for calls that return a value.
func guardValue[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("backend panic: %v", r)
		}
	}()
	return fn()
}
