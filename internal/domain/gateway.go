package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/davidbz/manifold/internal/observability"
)

// DefaultTemperature is applied when the caller omits temperature.
const DefaultTemperature = 0.7

// GatewayService is the unified client: it validates credentials, resolves
// output-token ceilings, dispatches to the matching provider adapter, and
// attaches cost accounting to every completed call.
type GatewayService struct {
	registry ProviderRegistry
	lookup   ModelLookup
}

// NewGatewayService creates a new gateway service (DI constructor).
func NewGatewayService(registry ProviderRegistry, lookup ModelLookup) *GatewayService {
	return &GatewayService{
		registry: registry,
		lookup:   lookup,
	}
}

// resolve validates the request and returns the provider adapter plus a copy
// of the request with the output-token ceiling filled in. The credential
// check happens here so a missing key never reaches the network.
func (g *GatewayService) resolve(
	ctx context.Context,
	req *CompletionRequest,
) (Provider, *CompletionRequest, error) {
	if req == nil {
		return nil, nil, errors.New("request cannot be nil")
	}

	if req.Provider == "" {
		return nil, nil, errors.New("provider cannot be empty")
	}

	if req.Credential() == "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingCredential, req.Provider)
	}

	provider, err := g.registry.Get(ctx, req.Provider)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, req.Provider)
	}

	resolved := *req
	if resolved.MaxTokens <= 0 {
		resolved.MaxTokens = g.lookup.MaxOutputTokens(req.Provider, req.Model)
	}

	return provider, &resolved, nil
}

// Complete handles a non-streaming completion request. The cost on the
// returned result is always derived from the lookup table, never from the
// adapter.
func (g *GatewayService) Complete(
	ctx context.Context,
	req *CompletionRequest,
) (*CompletionResult, error) {
	provider, resolved, err := g.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := provider.Complete(ctx, resolved)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	result.Provider = req.Provider
	result.Usage.Cost = g.lookup.Cost(
		req.Provider, req.Model,
		result.Usage.InputTokens, result.Usage.OutputTokens,
	)

	return result, nil
}

// Stream handles a streaming completion request. Providers with native
// streaming deliver fragments in arrival order; for the rest the gateway
// falls back to a full call and yields the whole response as one fragment.
func (g *GatewayService) Stream(
	ctx context.Context,
	req *CompletionRequest,
) (<-chan StreamChunk, error) {
	provider, resolved, err := g.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	if !provider.SupportsStreaming() {
		logger := observability.FromContext(ctx)
		logger.Info("provider has no native streaming, falling back to full call",
			observability.String("provider", req.Provider))

		result, callErr := provider.Complete(ctx, resolved)
		if callErr != nil {
			return nil, fmt.Errorf("completion failed: %w", callErr)
		}

		chunks := make(chan StreamChunk, 1)
		chunks <- StreamChunk{Delta: result.Text}
		close(chunks)
		return chunks, nil
	}

	chunks, err := provider.Stream(ctx, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to stream from provider: %w", err)
	}
	return chunks, nil
}
