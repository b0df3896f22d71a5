// ABOUTME: Tests for the store error type
// ABOUTME: Checks message layout and errors.Is/As through both kind and cause

package feedstore

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := newError(OpInsert, "news", ErrBackendWriteFailed, io.ErrShortWrite)
	assert.Equal(t, `feedstore: insert "news": backend write failed: short write`, err.Error())

	err = newError(OpOpen, "", ErrNotOpen, nil)
	assert.Equal(t, "feedstore: open: store not open", err.Error())
}

func TestError_Unwrap(t *testing.T) {
	var err error = newError(OpRetrieve, "news", ErrBackendReadFailed, io.ErrUnexpectedEOF)

	assert.True(t, errors.Is(err, ErrBackendReadFailed))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, ErrBackendWriteFailed))

	var serr *Error
	assert.True(t, errors.As(err, &serr))
	assert.Equal(t, "news", serr.Tag)
}
