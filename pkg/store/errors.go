package store

import (
	"errors"
	"fmt"

	"github.com/packdb/packdb/pkg/addr"
)

// Common sentinel errors
var (
	ErrNotOpen       = errors.New("store is not initialized")
	ErrClosed        = errors.New("store is closed")
	ErrReadOnly      = errors.New("store is read-only")
	ErrIncomplete    = errors.New("store directory is incomplete")
	ErrStoreMismatch = errors.New("data and index files belong to different stores")
)

// StoreError provides structured error information for store operations.
type StoreError struct {
	Op     string      // Operation that failed (e.g., "put", "batch")
	Path   string      // Store directory
	Offset addr.Offset // Record offset, when one is involved
	Cause  error       // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Offset != 0 {
		return fmt.Sprintf("%s %s at offset %d: %v", e.Op, e.Path, e.Offset, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *StoreError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// IsClosed returns true if the error indicates the store cannot serve.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, ErrNotOpen)
}
