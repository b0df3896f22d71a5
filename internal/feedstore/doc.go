// Package feedstore is a single-owner persistent store of feed items.
//
// # Architecture
//
// A Store is one worker goroutine that owns the configuration, the slot
// counter and the open store file. Every public method submits a request to
// that worker and waits for the reply, so operations never interleave and are
// served in arrival order. The handle returned by New is passed explicitly;
// there is no process-wide registry.
//
// # Slots
//
// Local items are keyed by (tag, slot). The slot counter is shared by all
// tags and advances once per local insert. With a capacity set it wraps modulo
// the capacity and the next insert overwrites whatever the same tag held at
// that slot. The counter is never written to disk. The first local Open of a
// Store derives it from the file: after the highest slot for unbounded stores,
// after the slot of the newest item for bounded ones, zero for an empty file.
// Later opens keep the counter as it is.
//
// # Expiry
//
// With ExpireByDays, Retrieve hides items older than the window. Nothing is
// deleted by Retrieve; Tidy removes expired items when RemoveExpired is set.
//
// # Delegation
//
// A Tag carrying a Backend is served entirely by that backend. The store
// forwards the call from inside its worker, sorts what comes back, and renders
// it. Local expiry and capacity do not apply. Backend errors and panics are
// reported as ErrDelegateFailed.
//
// # Errors
//
// Failing operations return *Error. Match the failure kind with errors.Is:
//
//	if errors.Is(err, feedstore.ErrNotAStoreFile) { ... }
package feedstore
