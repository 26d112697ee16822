package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeInternal          ErrorType = "internal"
	ErrorTypeBadRequest        ErrorType = "bad_request"
	ErrorTypeUnavailable       ErrorType = "unavailable"
	ErrorTypeInvalidURL        ErrorType = "invalid_url"
	ErrorTypeBackendRejected   ErrorType = "backend_rejected"
	ErrorTypeNonTextPayload    ErrorType = "non_text_payload"
	ErrorTypeProtocolViolation ErrorType = "protocol_violation"
)

// Sentinels for errors.Is; matching is by Type only.
var (
	ErrInvalidURL        = &Error{Type: ErrorTypeInvalidURL}
	ErrBackendRejected   = &Error{Type: ErrorTypeBackendRejected}
	ErrNonTextPayload    = &Error{Type: ErrorTypeNonTextPayload}
	ErrProtocolViolation = &Error{Type: ErrorTypeProtocolViolation}
)

// Error represents a structured error with additional context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]any
}

// NewError creates a new structured error
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithCause adds the underlying cause to the error
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Fatal reports whether the error signals a broken platform contract
// rather than a recoverable condition.
func (e *Error) Fatal() bool {
	return e.Type == ErrorTypeProtocolViolation
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal if err is not
// a structured error.
func TypeOf(err error) ErrorType {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Type
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ErrorTypeInternal
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
