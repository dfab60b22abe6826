// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Store errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")
)

// Response and parsing errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrValidation indicates a structured response did not match the expected shape.
	ErrValidation = errors.New("response validation failed")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidID indicates an invalid identifier.
	ErrInvalidID = errors.New("invalid id")
)

// External service errors.
var (
	// ErrRateLimited indicates rate limiting was triggered.
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExhausted indicates the service quota is used up and retries did not help.
	ErrQuotaExhausted = errors.New("quota exhausted")

	// ErrServiceUnavailable indicates a temporary outage on the remote side.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrMissingCredentials indicates a stage cannot start without an API key.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrHTTPStatus indicates an unexpected HTTP status code.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// Synthesis errors.
var (
	// ErrNoUsableArticles indicates no source article had enough content to synthesize from.
	ErrNoUsableArticles = errors.New("no usable source articles")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join is a convenience wrapper around errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
