package asyncio

import (
	"errors"
	"fmt"
)

// Sentinel errors for the kinds of failure RunUntil and friends can report.
// Use errors.Is to test for these; they are returned directly or wrapped.
var (
	// ErrTimedOut is returned by RunUntil when the deadline expires before
	// any post or completion became ready.
	ErrTimedOut = errors.New("asyncio: deadline expired")

	// ErrNotSupported is returned when RunUntil (or any owner-only method)
	// is called from a goroutine other than the one that constructed the
	// Service, or when RunUntil is reentered from within a post or
	// completion callback running on the owning goroutine.
	ErrNotSupported = errors.New("asyncio: operation not supported on this goroutine")

	// ErrInvalidArgument is returned for malformed deadlines or other bad
	// caller input.
	ErrInvalidArgument = errors.New("asyncio: invalid argument")

	// ErrCancelled is delivered to a request's completion callback when the
	// request was cancelled before it completed.
	ErrCancelled = errors.New("asyncio: operation cancelled")

	// ErrResourceExhausted is returned by New (or signal installation) when
	// the process has run out of a required OS resource, e.g. no free
	// real-time signal, or the completion port could not be created.
	ErrResourceExhausted = errors.New("asyncio: resource exhausted")
)

// OSError wraps an error surfaced unchanged from a backend syscall (submit
// or wait), tagging it with the operation that failed.
type OSError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *OSError) Error() string {
	return fmt.Sprintf("asyncio: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying syscall error for use with errors.Is/As.
func (e *OSError) Unwrap() error {
	return e.Err
}

// wrapOSError is a convenience constructor used at every backend boundary
// so the original syscall error is never discarded.
func wrapOSError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OSError{Op: op, Err: err}
}
