package apollo

import (
	"errors"
	"fmt"
)

// Sentinel errors for Apollo client failures. Callers branch on these with
// errors.Is; the typed errors below carry the details.
var (
	ErrUnauthorized    = errors.New("unauthorized: invalid or missing Apollo API key")
	ErrRateLimited     = errors.New("rate limited by Apollo")
	ErrProviderError   = errors.New("apollo error")
	ErrTransport       = errors.New("apollo unreachable")
	ErrInvalidResponse = errors.New("apollo returned an invalid response body")
)

// RateLimitError is returned for HTTP 429. RetryAfter holds the raw
// Retry-After header value, empty when Apollo sent none.
type RateLimitError struct {
	RetryAfter string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter == "" {
		return "Rate limited by Apollo (429)."
	}
	return fmt.Sprintf("Rate limited by Apollo (429). Retry after %ss.", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// StatusError is returned for any other status >= 400.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Apollo error %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrProviderError }
