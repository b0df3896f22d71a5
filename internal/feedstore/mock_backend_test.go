// ABOUTME: Unit tests for MockBackend
// ABOUTME: Ensures the mock keeps insertion order and honours injected faults

package feedstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/feedstore/internal/feed"
)

func TestMockBackend_KeepsInsertionOrder(t *testing.T) {
	m := NewMockBackend()
	ctx := context.Background()

	require.NoError(t, m.Insert(ctx, "t", feed.Item{Title: "late", CreatedAt: 9}))
	require.NoError(t, m.Insert(ctx, "t", feed.Item{Title: "early", CreatedAt: 1}))

	items, err := m.Retrieve(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"late", "early"}, titles(items))

	// Callers get a copy.
	items[0].Title = "changed"
	again, err := m.Retrieve(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "late", again[0].Title)
}

func TestMockBackend_Faults(t *testing.T) {
	m := NewMockBackend()
	ctx := context.Background()

	m.FailOn["retrieve"] = true
	_, err := m.Retrieve(ctx, "t")
	assert.ErrorIs(t, err, ErrMockFailure)

	m.PanicOn["insert"] = true
	assert.Panics(t, func() {
		_ = m.Insert(ctx, "t", feed.Item{})
	})

	// A panic must not leave the mutex held.
	require.NoError(t, m.Close(ctx, "t"))
	assert.Equal(t, []string{"t"}, m.Closed())
}
