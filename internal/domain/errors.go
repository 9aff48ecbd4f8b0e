package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for request validation and dispatch failures.
var (
	// ErrMissingCredential means the caller supplied no API key for the
	// requested provider. Raised before any network I/O.
	ErrMissingCredential = errors.New("missing provider API key")

	// ErrUnsupportedProvider means the provider name is not one of the
	// known six.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrRateLimited means the provider rejected the call with HTTP 429.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrTimeout means the provider call exceeded its deadline.
	ErrTimeout = errors.New("provider call timed out")
)

// ProviderError carries a non-2xx provider response. Message holds the
// provider's own error text when it could be extracted, otherwise the raw
// response body.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited reports whether err is a provider 429.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout reports whether err is a provider call deadline failure.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
