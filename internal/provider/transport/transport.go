// Package transport provides the HTTP plumbing shared by provider adapters:
// per-call clients, deadline classification, and provider error extraction.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/davidbz/manifold/internal/domain"
)

const (
	// CallTimeout bounds a non-streaming provider call.
	CallTimeout = 120 * time.Second

	// StreamTimeout bounds a streaming call; generation may run long.
	StreamTimeout = 300 * time.Second
)

// NewClient builds an HTTP client with the given total timeout. Each call
// opens a fresh connection; nothing is pooled across requests.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
}

// WrapError classifies a transport-level failure, mapping exceeded deadlines
// to domain.ErrTimeout.
func WrapError(provider string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%s: %w", provider, domain.ErrTimeout)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", provider, domain.ErrTimeout)
	}
	return fmt.Errorf("%s request failed: %w", provider, err)
}

// errorEnvelope is the {"error": {"message": ...}} shape shared by every
// provider in the catalog.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeError turns a non-2xx provider response into a ProviderError,
// carrying the provider's own error message when extractable and the raw
// body otherwise.
func DecodeError(provider string, statusCode int, body []byte) error {
	message := string(body)

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	return &domain.ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
	}
}

// Emit delivers a chunk unless the consumer has gone away. It returns false
// when the context is done, signalling the producer to stop reading provider
// bytes and release the connection.
func Emit(ctx context.Context, chunks chan<- domain.StreamChunk, chunk domain.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
