// Package kv is the durable backend of the feed store: a flat keyed store
// mapping (tag, slot) to a feed item.
//
// # Drivers
//
//   - bolt (default): a single bbolt file with one bucket, "items". Keys and
//     item records use the protobuf wire format.
//   - sqlite: a SQLite file with one table, "items", keyed by (tag, slot).
//
// # Reads
//
// ForEach is the only read primitive. There is no lookup by tag, so readers
// scan the whole store and filter in memory. That is fine for the few
// thousand items a feed store holds.
//
// # File validation
//
// IsValidFile reports whether a path can be opened by a driver without
// clobbering a foreign file. Missing and empty files are valid because Open
// creates them. Lock timeouts and permission problems are left for Open to
// report.
package kv
