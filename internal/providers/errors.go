package providers

import (
	"errors"
	"net/http"
)

// Gateway errors. Backends wrap one of these so callers can branch with errors.Is.
var (
	// ErrProviderMismatch indicates an embedding whose dimensionality differs
	// from the vector index.
	ErrProviderMismatch = errors.New("provider dimensions do not match index")

	// ErrProviderUnavailable indicates a network, authentication, timeout or
	// server failure at the backend.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimit indicates the backend or the local limiter refused the call.
	ErrRateLimit = errors.New("provider rate limit exceeded")

	// ErrUnknownProvider indicates a provider name outside the configured set.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMalformedResponse indicates a backend answered with a body that could not be interpreted.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// MapHTTPStatus maps provider errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, ErrProviderMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// transientError marks failures that may succeed when retried.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error {
	return &transientError{err: err}
}

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
