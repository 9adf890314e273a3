// Package apperrors defines the closed set of error kinds used across the
// service. Handlers map each kind to exactly one HTTP status; business code
// never formats status codes itself.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("service unavailable")
	ErrTimeout      = errors.New("upstream timeout")
)

// Error carries a kind, a caller-facing message and optionally the record
// that caused the conflict (duplicate attendance returns the existing event).
type Error struct {
	Kind    error
	Message string
	Data    any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// New wraps kind with a message.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf wraps kind with a formatted message.
func Newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithData attaches the conflicting record to a kinded error.
func WithData(kind error, message string, data any) *Error {
	return &Error{Kind: kind, Message: message, Data: data}
}

func Validation(message string) *Error  { return New(ErrValidation, message) }
func Forbidden(message string) *Error   { return New(ErrForbidden, message) }
func NotFound(message string) *Error    { return New(ErrNotFound, message) }
func Conflict(message string) *Error    { return New(ErrConflict, message) }
func Unavailable(message string) *Error { return New(ErrUnavailable, message) }
func Timeout(message string) *Error     { return New(ErrTimeout, message) }

// Data returns the attached record for err, if any.
func Data(err error) any {
	var e *Error
	if errors.As(err, &e) {
		return e.Data
	}
	return nil
}
