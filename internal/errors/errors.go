// Package errors provides typed errors for the MT5 bridge services.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy shared by both services.
var (
	// ErrValidation indicates malformed input; no network call was made.
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized indicates bad credentials or a bad/expired/missing token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstream indicates a terminal or network failure.
	ErrUpstream = errors.New("upstream error")

	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimit indicates too many requests.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrInternal indicates an unexpected internal error.
	ErrInternal = errors.New("internal error")
)

// AppError is a structured application error.
type AppError struct {
	// Type is the error type (sentinel error).
	Type error
	// Message is the user-facing error message.
	Message string
	// Cause is the underlying error. It is logged, never exposed.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error type.
func (e *AppError) Unwrap() error {
	return e.Type
}

// Is checks if this error matches the target.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

// New creates a new AppError.
func New(errType error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(errType error, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
	}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Type:    ErrUnauthorized,
		Message: message,
	}
}

// Upstream creates an upstream error. The cause stays internal.
func Upstream(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrUpstream,
		Message: message,
		Cause:   cause,
	}
}

// Internal creates an internal error.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrInternal,
		Message: message,
		Cause:   cause,
	}
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnauthorized checks if an error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsUpstream checks if an error is an upstream error.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return 400
	case errors.Is(err, ErrUnauthorized):
		return 401
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrRateLimit):
		return 429
	case errors.Is(err, ErrUpstream):
		return 502
	default:
		return 500
	}
}
