// Package errors provides error handling for cadence.
//
// This package re-exports github.com/cockroachdb/errors, providing stack
// traces, wrapping, hints and details, and adds the sentinel errors that
// make up the engine's error taxonomy.
//
// Usage:
//
//	if err := store.MarkPosted(ctx, id, now); err != nil {
//	    if errors.IsInvalidTransition(err) {
//	        // already posted
//	    }
//	    return errors.Wrap(err, "failed to mark artifact posted")
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
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
	CombineErrors      = crdb.CombineErrors
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

// Sentinel errors. Check with Is (or the helpers below); wrap with Wrap or
// Mark to add context while preserving identity.
var (
	// ErrNotFound indicates the requested artifact or record does not exist
	ErrNotFound = New("not found")

	// ErrInvalidTransition indicates a state change the artifact lifecycle forbids
	ErrInvalidTransition = New("invalid state transition")

	// ErrInvalidConfig indicates rejected configuration (e.g. a bad trigger time)
	ErrInvalidConfig = New("invalid configuration")

	// ErrDuplicateID indicates an artifact with the same ID already exists
	ErrDuplicateID = New("duplicate id")

	// ErrAdapterFailure indicates an external collaborator reported failure
	ErrAdapterFailure = New("adapter failure")

	// ErrAdapterTimeout indicates an external collaborator did not answer in time
	ErrAdapterTimeout = New("adapter timeout")

	// ErrStoreUnavailable indicates the backing database cannot serve the request
	ErrStoreUnavailable = New("store unavailable")
)

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidTransition checks if an error is or wraps ErrInvalidTransition
func IsInvalidTransition(err error) bool {
	return err != nil && Is(err, ErrInvalidTransition)
}

// IsInvalidConfig checks if an error is or wraps ErrInvalidConfig
func IsInvalidConfig(err error) bool {
	return err != nil && Is(err, ErrInvalidConfig)
}

// IsDuplicateID checks if an error is or wraps ErrDuplicateID
func IsDuplicateID(err error) bool {
	return err != nil && Is(err, ErrDuplicateID)
}

// IsAdapterError reports whether err is an adapter failure or timeout.
// Both are transient: the artifact stays eligible for the next fire.
func IsAdapterError(err error) bool {
	return err != nil && IsAny(err, ErrAdapterFailure, ErrAdapterTimeout)
}

// IsStoreUnavailable checks if an error is or wraps ErrStoreUnavailable
func IsStoreUnavailable(err error) bool {
	return err != nil && Is(err, ErrStoreUnavailable)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidTransitionError creates an invalid-transition error with a formatted message
func NewInvalidTransitionError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidTransition, Newf(format, args...).Error())
}

// NewInvalidConfigError creates an invalid-config error with a formatted message
func NewInvalidConfigError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidConfig, Newf(format, args...).Error())
}

// NewAdapterFailure marks cause as an adapter failure, keeping its message.
func NewAdapterFailure(cause error) error {
	if cause == nil {
		return ErrAdapterFailure
	}
	return Mark(cause, ErrAdapterFailure)
}

// WrapStoreUnavailable marks a driver error as a store outage with context
func WrapStoreUnavailable(err error, context string) error {
	return Wrap(Mark(err, ErrStoreUnavailable), context)
}
