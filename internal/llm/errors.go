package llm

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies provider failures into a closed set so that
// callers can present a stable message instead of raw provider text.
type ErrorCategory string

const (
	ErrServiceUnavailable  ErrorCategory = "service_unavailable"
	ErrRateLimitExceeded   ErrorCategory = "rate_limit_exceeded"
	ErrAuthenticationError ErrorCategory = "authentication_error"
	ErrInvalidRequest      ErrorCategory = "invalid_request"
	ErrUnknown             ErrorCategory = "unknown_error"
)

// APIError is a non-2xx response from a provider. Body is capped at a
// few KB by the adapters; it is logged, never shown to users.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Categorize maps a provider error to its category. Transport-level
// failures (no HTTP status) count as the service being unavailable.
func Categorize(err error) ErrorCategory {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return ErrServiceUnavailable
	}
	switch {
	case apiErr.StatusCode == 429:
		return ErrRateLimitExceeded
	case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
		return ErrAuthenticationError
	case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return ErrInvalidRequest
	case apiErr.StatusCode >= 500:
		return ErrServiceUnavailable
	default:
		return ErrUnknown
	}
}
