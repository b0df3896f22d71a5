// ABOUTME: Feed item model shared by the store, its backends and the renderer
// ABOUTME: Items are immutable values keyed by creation time in epoch seconds

package feed

import (
	"fmt"
	"sort"
	"time"
)

// Item is a single feed entry.
type Item struct {
	Title       string
	Link        string
	Description string
	Creator     string // may be empty
	CreatedAt   int64  // seconds since the Unix epoch
}

// Time returns CreatedAt as a UTC time.
func (i Item) Time() time.Time {
	return time.Unix(i.CreatedAt, 0).UTC()
}

// Date returns the civil date of CreatedAt as Y-M-D with no zero padding.
func (i Item) Date() string {
	y, m, d := i.Time().Date()
	return fmt.Sprintf("%d-%d-%d", y, int(m), d)
}

// SortByCreated sorts items oldest first. Items with equal timestamps keep
// their relative order.
func SortByCreated(items []Item) {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].CreatedAt < items[b].CreatedAt
	})
}
