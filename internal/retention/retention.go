// ABOUTME: Slot assignment and age-based expiry rules for the feed store
// ABOUTME: Pure functions of the counter, capacity, expire mode and clock

package retention

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/2389/feedstore/internal/feed"
)

// Unbounded is the MaxItems value for a store without a capacity limit.
const Unbounded = 0

// SecondsPerDay is the length of an expiry day.
const SecondsPerDay = 86400

// ExpireMode selects whether items age out.
type ExpireMode int

const (
	ExpireNone   ExpireMode = iota // keep everything
	ExpireByDays                   // hide items older than Days
)

func (m ExpireMode) String() string {
	switch m {
	case ExpireNone:
		return "none"
	case ExpireByDays:
		return "days"
	default:
		return fmt.Sprintf("ExpireMode(%d)", int(m))
	}
}

// ParseExpireMode parses the textual expire setting. The empty string means
// ExpireNone.
func ParseExpireMode(s string) (ExpireMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "false":
		return ExpireNone, nil
	case "days", "by_days", "bydays":
		return ExpireByDays, nil
	default:
		return ExpireNone, fmt.Errorf("unknown expire mode %q", s)
	}
}

// NextSlot returns the slot for the next insert given the current counter.
func NextSlot(counter uint64, maxItems int) uint64 {
	if maxItems <= Unbounded {
		return counter + 1
	}
	return (counter + 1) % uint64(maxItems)
}

// Policy is the expiry half of the retention rules.
type Policy struct {
	Expire ExpireMode
	Days   int
}

// Cutoff returns the creation time at or below which items are expired.
func (p Policy) Cutoff(now time.Time) int64 {
	return now.Unix() - int64(p.Days)*SecondsPerDay
}

// Keep reports whether item is still visible at now.
func (p Policy) Keep(item feed.Item, now time.Time) bool {
	if p.Expire != ExpireByDays {
		return true
	}
	return item.CreatedAt > p.Cutoff(now)
}

// Filter returns the visible items, preserving order. The input slice is not
// modified.
func (p Policy) Filter(items []feed.Item, now time.Time) []feed.Item {
	if p.Expire != ExpireByDays {
		return items
	}

	return lo.Filter(items, func(it feed.Item, _ int) bool {
		return p.Keep(it, now)
	})
}
