package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is; handlers map them to HTTP status codes.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrPackaging       = errors.New("packaging error")
	ErrPersistence     = errors.New("persistence error")
)

// Error is a structured failure carrying a kind, a message that is safe to show
// to the caller, and optionally the id of the offending resource.
// The cause is kept for internal logging and never rendered to clients.
type Error struct {
	Kind    error
	Message string
	ID      string
	cause   error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.ID != "" {
		msg += " (" + e.ID + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// Cause returns the wrapped internal error, if any.
func (e *Error) Cause() error {
	return e.cause
}

// Code returns the machine-readable error code used in API responses.
func (e *Error) Code() string {
	return CodeOf(e.Kind)
}

// CodeOf returns the API error code for an error kind.
func CodeOf(kind error) string {
	switch kind {
	case ErrValidation:
		return "validation_error"
	case ErrUnauthenticated:
		return "unauthenticated"
	case ErrForbidden:
		return "forbidden"
	case ErrNotFound:
		return "not_found"
	case ErrConflict:
		return "conflict"
	case ErrPackaging:
		return "packaging_error"
	default:
		return "internal_error"
	}
}

func newError(kind error, id, format string, args ...any) *Error {
	return &Error{Kind: kind, ID: id, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or incomplete input.
func Validation(id, format string, args ...any) error {
	return newError(ErrValidation, id, format, args...)
}

// Unauthenticated reports a missing or unverifiable principal.
func Unauthenticated(format string, args ...any) error {
	return newError(ErrUnauthenticated, "", format, args...)
}

// Forbidden reports a verified principal lacking rights on a resource.
func Forbidden(id, format string, args ...any) error {
	return newError(ErrForbidden, id, format, args...)
}

// NotFound reports an absent or soft-deleted resource.
func NotFound(id, format string, args ...any) error {
	return newError(ErrNotFound, id, format, args...)
}

// Conflict reports a unique-constraint violation.
func Conflict(id, format string, args ...any) error {
	return newError(ErrConflict, id, format, args...)
}

// Packaging reports an export-time resolution failure.
func Packaging(id, format string, args ...any) error {
	return newError(ErrPackaging, id, format, args...)
}

// Persistence wraps an opaque storage failure. The cause is retained for logs only.
func Persistence(op string, cause error) error {
	return &Error{Kind: ErrPersistence, Message: op, cause: cause}
}

// Wrap passes through errors that already carry a kind and wraps anything
// else as a persistence failure. Repositories signal kinds with the bare
// sentinels, which are promoted to structured errors carrying id.
func Wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NotFound(id, "%s", op)
	case errors.Is(err, ErrConflict):
		return Conflict(id, "%s", op)
	}
	return Persistence(op, err)
}
