package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Interaction error codes
const (
	ErrSessionLost       ErrorCode = "SESSION_LOST"
	ErrElementNotFound   ErrorCode = "ELEMENT_NOT_FOUND"
	ErrNavigationFailed  ErrorCode = "NAVIGATION_FAILED"
	ErrDriverUnavailable ErrorCode = "DRIVER_UNAVAILABLE"
	ErrCancelled         ErrorCode = "CANCELLED"
)

// Task error codes
const (
	ErrInvalidProfile    ErrorCode = "INVALID_PROFILE"
	ErrInvalidCredential ErrorCode = "INVALID_CREDENTIAL"
	ErrSignInFailed      ErrorCode = "SIGN_IN_FAILED"
	ErrTaskPanicked      ErrorCode = "TASK_PANICKED"
	ErrTaskTimeout       ErrorCode = "TASK_TIMEOUT"
	ErrInternalError     ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Profile   Profile   `json:"profile,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same code, so sentinel values built
// with NewError work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProfile sets the profile the error occurred under.
func (e *Error) WithProfile(profile Profile) *Error {
	e.Profile = profile
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code anywhere in its chain.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
