// ABOUTME: Error taxonomy for feed store operations
// ABOUTME: Error carries the operation, tag, failure kind and underlying cause

package feedstore

import (
	"errors"
	"strconv"
	"strings"
)

// Failure kinds. Match them with errors.Is.
var (
	// ErrNotAStoreFile means the configured file exists but is not a store.
	ErrNotAStoreFile = errors.New("not a feed store file")
	// ErrBackendOpenFailed means the store file could not be opened or created.
	ErrBackendOpenFailed = errors.New("backend open failed")
	// ErrBackendWriteFailed means a durable write was rejected.
	ErrBackendWriteFailed = errors.New("backend write failed")
	// ErrBackendReadFailed means the store scan failed.
	ErrBackendReadFailed = errors.New("backend read failed")
	// ErrDelegateFailed wraps any failure of a delegated backend, panics included.
	ErrDelegateFailed = errors.New("delegated backend failed")
	// ErrNotOpen means a local operation was issued before Open.
	ErrNotOpen = errors.New("store not open")
	// ErrStopped means the store's worker has been stopped.
	ErrStopped = errors.New("store stopped")
	// ErrInvalidOption means an option value has the wrong type or range.
	ErrInvalidOption = errors.New("invalid option")
)

// Op names a store operation.
type Op string

const (
	OpOpen     Op = "open"
	OpInsert   Op = "insert"
	OpRetrieve Op = "retrieve"
	OpTidy     Op = "tidy"
)

// Error is returned by every failing store operation.
type Error struct {
	Op   Op
	Tag  string // empty for store-wide operations
	Kind error  // one of the Err* kinds above, or a context error
	Err  error  // underlying cause, may be nil
}

func newError(op Op, tag string, kind, cause error) *Error {
	return &Error{Op: op, Tag: tag, Kind: kind, Err: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("feedstore: ")
	b.WriteString(string(e.Op))
	if e.Tag != "" {
		b.WriteString(" ")
		b.WriteString(strconv.Quote(e.Tag))
	}
	if e.Kind != nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
