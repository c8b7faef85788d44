// Package apperrors defines the closed error taxonomy shared by every
// component of the deliberation core, following the sentinel-plus-typed-wrapper
// convention used throughout the teacher codebase's pkg/services/errors.go and
// pkg/config/errors.go.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy from spec.md §7.
type ErrorKind string

// Error kinds. Every fallible core operation returns an error classifiable
// into exactly one of these.
const (
	KindNotFound               ErrorKind = "not_found"
	KindForbidden              ErrorKind = "forbidden"
	KindValidationFailed       ErrorKind = "validation_failed"
	KindInvalidStateTransition ErrorKind = "invalid_state_transition"
	KindConflict               ErrorKind = "conflict"
	KindRateLimited            ErrorKind = "rate_limited"
	KindExternalServiceError   ErrorKind = "external_service_error"
	KindInternalError          ErrorKind = "internal_error"
	KindDatabaseError          ErrorKind = "database_error"
)

// Sentinel errors for kinds that carry no structured payload.
var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrRateLimited           = errors.New("rate limited")
	ErrExternalServiceError  = errors.New("external service error")
	ErrInternalError         = errors.New("internal error")
	ErrDatabaseError         = errors.New("database error")
)

// ValidationError reports a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on field %q: %s", e.Field, e.Message)
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InvalidStateTransitionError reports an illegal state-machine edge.
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %q to %q", e.From, e.To)
}

// NewInvalidStateTransitionError constructs an InvalidStateTransitionError.
func NewInvalidStateTransitionError(from, to string) error {
	return &InvalidStateTransitionError{From: from, To: to}
}

// ConflictError reports an optimistic-concurrency or uniqueness conflict.
type ConflictError struct {
	Resource string
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("conflict on %s", e.Resource)
	}
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Reason)
}

// NewConflictError constructs a ConflictError.
func NewConflictError(resource, reason string) error {
	return &ConflictError{Resource: resource, Reason: reason}
}

// NotFoundError reports a missing aggregate, scoped with its id for logging.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// Kind classifies err into the closed taxonomy. Unrecognized errors are
// classified as KindInternalError, matching the teacher's fail-closed
// posture on unmapped errors.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidationFailed
	}

	var transitionErr *InvalidStateTransitionError
	if errors.As(err, &transitionErr) {
		return KindInvalidStateTransition
	}

	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return KindConflict
	}

	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return KindNotFound
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrExternalServiceError):
		return KindExternalServiceError
	case errors.Is(err, ErrDatabaseError):
		return KindDatabaseError
	default:
		return KindInternalError
	}
}
