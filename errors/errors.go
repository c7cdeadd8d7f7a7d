// Package errors provides error handling for cronstore.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Sentinel categories that domain errors wrap
//
// Usage:
//
//	// Wrap with context
//	if err := store.Save(ctx, job); err != nil {
//	    return errors.Wrap(err, "failed to schedule event")
//	}
//
//	// Check categories
//	if errors.Is(err, errors.ErrInvalidRequest) {
//	    // fall back to the host's native behaviour
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Common sentinel errors.
// Use these with errors.Is() for type-safe error checking.
var (
	// ErrNotFound indicates the requested job, event or log does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrConflict indicates the request conflicts with the current state of a job
	ErrConflict = New("resource conflict")
)

// Domain sentinels. Each wraps its category, so errors.Is matches both the
// sentinel itself and ErrInvalidRequest (or ErrConflict for the delete guard).
var (
	ErrInvalidTenant = Wrap(ErrInvalidRequest, "invalid tenant")
	ErrInvalidHook   = Wrap(ErrInvalidRequest, "invalid hook")
	ErrInvalidArgs   = Wrap(ErrInvalidRequest, "invalid args")
	ErrInvalidLimit  = Wrap(ErrInvalidRequest, "invalid limit")
	ErrNotRecurring  = Wrap(ErrInvalidRequest, "job is not recurring")
	ErrStillRunning  = Wrap(ErrConflict, "cannot delete running jobs")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest,
// including every validation sentinel.
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsStillRunningError checks if an error came from the running-job delete guard
func IsStillRunningError(err error) bool {
	return err != nil && Is(err, ErrStillRunning)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
