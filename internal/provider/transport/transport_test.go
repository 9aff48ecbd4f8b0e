package transport_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/transport"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "deadline exceeded" }
func (timeoutErr) Timeout() bool { return true }

func TestWrapError(t *testing.T) {
	t.Run("url timeout maps to ErrTimeout", func(t *testing.T) {
		err := &url.Error{Op: "Post", URL: "https://api.openai.com", Err: timeoutErr{}}
		require.ErrorIs(t, transport.WrapError("openai", err), domain.ErrTimeout)
	})

	t.Run("context deadline maps to ErrTimeout", func(t *testing.T) {
		require.ErrorIs(t, transport.WrapError("openai", context.DeadlineExceeded), domain.ErrTimeout)
	})

	t.Run("other errors keep their identity", func(t *testing.T) {
		cause := errors.New("connection refused")
		wrapped := transport.WrapError("groq", cause)

		require.ErrorIs(t, wrapped, cause)
		require.NotErrorIs(t, wrapped, domain.ErrTimeout)
		require.Contains(t, wrapped.Error(), "groq")
	})
}

func TestDecodeError(t *testing.T) {
	t.Run("extracts envelope message", func(t *testing.T) {
		err := transport.DecodeError("openai", 401, []byte(`{"error": {"message": "bad key"}}`))

		var provErr *domain.ProviderError
		require.ErrorAs(t, err, &provErr)
		require.Equal(t, "openai", provErr.Provider)
		require.Equal(t, 401, provErr.StatusCode)
		require.Equal(t, "bad key", provErr.Message)
	})

	t.Run("falls back to raw body", func(t *testing.T) {
		err := transport.DecodeError("google", 502, []byte("upstream gateway error"))

		var provErr *domain.ProviderError
		require.ErrorAs(t, err, &provErr)
		require.Equal(t, "upstream gateway error", provErr.Message)
	})
}

func TestEmit(t *testing.T) {
	t.Run("delivers while the consumer listens", func(t *testing.T) {
		chunks := make(chan domain.StreamChunk, 1)

		ok := transport.Emit(context.Background(), chunks, domain.StreamChunk{Delta: "x"})

		require.True(t, ok)
		require.Equal(t, "x", (<-chunks).Delta)
	})

	t.Run("returns false when the consumer is gone", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		chunks := make(chan domain.StreamChunk)
		ok := transport.Emit(ctx, chunks, domain.StreamChunk{Delta: "x"})

		require.False(t, ok)
	})
}
