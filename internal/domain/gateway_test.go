package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/manifold/internal/domain"
)

// mockRegistry is a mock implementation of ProviderRegistry for testing.
type mockRegistry struct {
	providers map[string]domain.Provider
}

func newMockRegistry(providers ...domain.Provider) *mockRegistry {
	reg := &mockRegistry{providers: make(map[string]domain.Provider)}
	for _, p := range providers {
		reg.providers[p.Name()] = p
	}
	return reg
}

func (m *mockRegistry) Register(_ context.Context, provider domain.Provider) error {
	m.providers[provider.Name()] = provider
	return nil
}

func (m *mockRegistry) Get(_ context.Context, providerName string) (domain.Provider, error) {
	provider, exists := m.providers[providerName]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", providerName)
	}
	return provider, nil
}

func (m *mockRegistry) List(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	return names, nil
}

// mockLookup is a mock implementation of ModelLookup for testing.
type mockLookup struct {
	inputCostPer1K  float64
	outputCostPer1K float64
	maxOutput       int
}

func (m *mockLookup) Cost(_, _ string, inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*m.inputCostPer1K + float64(outputTokens)/1000*m.outputCostPer1K
}

func (m *mockLookup) MaxOutputTokens(_, _ string) int {
	return m.maxOutput
}

// mockProvider is a mock implementation of Provider for testing.
type mockProvider struct {
	name         string
	streaming    bool
	completeFunc func(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error)
	streamFunc   func(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamChunk, error)

	completeCalls []*domain.CompletionRequest
	streamCalls   []*domain.CompletionRequest
}

func (m *mockProvider) Complete(
	ctx context.Context,
	req *domain.CompletionRequest,
) (*domain.CompletionResult, error) {
	m.completeCalls = append(m.completeCalls, req)
	if m.completeFunc != nil {
		return m.completeFunc(ctx, req)
	}
	return &domain.CompletionResult{
		Text:  "test response",
		Model: req.Model,
		Usage: domain.Usage{InputTokens: 10, OutputTokens: 20},
	}, nil
}

func (m *mockProvider) Stream(
	ctx context.Context,
	req *domain.CompletionRequest,
) (<-chan domain.StreamChunk, error) {
	m.streamCalls = append(m.streamCalls, req)
	if m.streamFunc != nil {
		return m.streamFunc(ctx, req)
	}
	chunks := make(chan domain.StreamChunk, 2)
	chunks <- domain.StreamChunk{Delta: "hello "}
	chunks <- domain.StreamChunk{Delta: "world"}
	close(chunks)
	return chunks, nil
}

func (m *mockProvider) Name() string            { return m.name }
func (m *mockProvider) SupportsStreaming() bool { return m.streaming }

func validRequest(provider string) *domain.CompletionRequest {
	return &domain.CompletionRequest{
		Provider:    provider,
		Model:       "test-model",
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: "Hello"}},
		Temperature: 0.7,
		APIKeys:     map[string]string{provider: "sk-test"},
	}
}

func TestGatewayService_Complete(t *testing.T) {
	t.Run("attaches cost from lookup table", func(t *testing.T) {
		provider := &mockProvider{name: "openai"}
		lookup := &mockLookup{inputCostPer1K: 0.01, outputCostPer1K: 0.02, maxOutput: 4096}
		gateway := domain.NewGatewayService(newMockRegistry(provider), lookup)

		result, err := gateway.Complete(context.Background(), validRequest("openai"))

		require.NoError(t, err)
		// (10/1000 * 0.01) + (20/1000 * 0.02)
		require.InDelta(t, 0.0005, result.Usage.Cost, 1e-9)
		require.Equal(t, "openai", result.Provider)
	})

	t.Run("resolves default max tokens from lookup", func(t *testing.T) {
		provider := &mockProvider{name: "openai"}
		lookup := &mockLookup{maxOutput: 16384}
		gateway := domain.NewGatewayService(newMockRegistry(provider), lookup)

		_, err := gateway.Complete(context.Background(), validRequest("openai"))

		require.NoError(t, err)
		require.Len(t, provider.completeCalls, 1)
		require.Equal(t, 16384, provider.completeCalls[0].MaxTokens)
	})

	t.Run("keeps caller max tokens when provided", func(t *testing.T) {
		provider := &mockProvider{name: "openai"}
		lookup := &mockLookup{maxOutput: 16384}
		gateway := domain.NewGatewayService(newMockRegistry(provider), lookup)

		req := validRequest("openai")
		req.MaxTokens = 512
		_, err := gateway.Complete(context.Background(), req)

		require.NoError(t, err)
		require.Equal(t, 512, provider.completeCalls[0].MaxTokens)
	})

	t.Run("missing credential fails before reaching the adapter", func(t *testing.T) {
		provider := &mockProvider{name: "openai"}
		gateway := domain.NewGatewayService(newMockRegistry(provider), &mockLookup{maxOutput: 4096})

		req := validRequest("openai")
		req.APIKeys = map[string]string{"anthropic": "sk-other"}
		result, err := gateway.Complete(context.Background(), req)

		require.ErrorIs(t, err, domain.ErrMissingCredential)
		require.Nil(t, result)
		require.Empty(t, provider.completeCalls)
	})

	t.Run("unsupported provider fails before reaching any adapter", func(t *testing.T) {
		provider := &mockProvider{name: "openai"}
		gateway := domain.NewGatewayService(newMockRegistry(provider), &mockLookup{maxOutput: 4096})

		result, err := gateway.Complete(context.Background(), validRequest("acme"))

		require.ErrorIs(t, err, domain.ErrUnsupportedProvider)
		require.Nil(t, result)
		require.Empty(t, provider.completeCalls)
	})

	t.Run("nil request is rejected", func(t *testing.T) {
		gateway := domain.NewGatewayService(newMockRegistry(), &mockLookup{})

		result, err := gateway.Complete(context.Background(), nil)

		require.Error(t, err)
		require.Nil(t, result)
	})

	t.Run("adapter failure propagates as a single error", func(t *testing.T) {
		wantErr := errors.New("boom")
		provider := &mockProvider{
			name: "openai",
			completeFunc: func(context.Context, *domain.CompletionRequest) (*domain.CompletionResult, error) {
				return nil, wantErr
			},
		}
		gateway := domain.NewGatewayService(newMockRegistry(provider), &mockLookup{maxOutput: 4096})

		result, err := gateway.Complete(context.Background(), validRequest("openai"))

		require.ErrorIs(t, err, wantErr)
		require.Nil(t, result)
	})
}

func TestGatewayService_Stream(t *testing.T) {
	t.Run("forwards fragments unchanged and in order", func(t *testing.T) {
		provider := &mockProvider{name: "anthropic", streaming: true}
		gateway := domain.NewGatewayService(newMockRegistry(provider), &mockLookup{maxOutput: 4096})

		chunks, err := gateway.Stream(context.Background(), validRequest("anthropic"))
		require.NoError(t, err)

		var got []string
		for chunk := range chunks {
			require.NoError(t, chunk.Err)
			got = append(got, chunk.Delta)
		}
		require.Equal(t, []string{"hello ", "world"}, got)
		require.Empty(t, provider.completeCalls)
	})

	t.Run("falls back to a single fragment without native streaming", func(t *testing.T) {
		provider := &mockProvider{
			name: "deepseek",
			completeFunc: func(_ context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error) {
				return &domain.CompletionResult{Text: "full response text", Model: req.Model}, nil
			},
		}
		gateway := domain.NewGatewayService(newMockRegistry(provider), &mockLookup{maxOutput: 4096})

		chunks, err := gateway.Stream(context.Background(), validRequest("deepseek"))
		require.NoError(t, err)

		var got []string
		for chunk := range chunks {
			require.NoError(t, chunk.Err)
			got = append(got, chunk.Delta)
		}
		require.Equal(t, []string{"full response text"}, got)
		require.Empty(t, provider.streamCalls)
	})

	t.Run("missing credential fails before reaching the adapter", func(t *testing.T) {
		provider := &mockProvider{name: "google", streaming: true}
		gateway := domain.NewGatewayService(newMockRegistry(provider), &mockLookup{maxOutput: 4096})

		req := validRequest("google")
		req.APIKeys = nil
		chunks, err := gateway.Stream(context.Background(), req)

		require.ErrorIs(t, err, domain.ErrMissingCredential)
		require.Nil(t, chunks)
		require.Empty(t, provider.streamCalls)
	})

	t.Run("unsupported provider fails", func(t *testing.T) {
		gateway := domain.NewGatewayService(newMockRegistry(), &mockLookup{maxOutput: 4096})

		chunks, err := gateway.Stream(context.Background(), validRequest("acme"))

		require.ErrorIs(t, err, domain.ErrUnsupportedProvider)
		require.Nil(t, chunks)
	})
}
