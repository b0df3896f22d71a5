// Package retention holds the pure retention rules of the feed store: which
// slot the next insert lands in, and which stored items are still visible.
//
// Slots come from one counter shared by every tag. With a finite capacity
// the counter wraps, so the next slot is (counter+1) mod max; an unbounded
// store never wraps.
//
// Expiry is evaluated at read time against a cutoff of now minus the
// configured number of days. Items created at or before the cutoff are
// hidden. Filtering never deletes anything.
package retention
