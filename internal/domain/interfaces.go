package domain

import "context"

// Provider adapts one vendor's chat completion API to the canonical model.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)

	// Stream sends a completion request and returns text fragments as they
	// arrive. The returned channel is closed at end of stream; a terminal
	// failure is delivered as a chunk with Err set.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error)

	// Name returns the provider identifier.
	Name() string

	// SupportsStreaming reports whether the provider streams natively.
	SupportsStreaming() bool
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Provider, error)

	// List returns all available provider names.
	List(ctx context.Context) ([]string, error)
}

// ModelLookup resolves pricing and token limits for provider models.
// Implementations are read-only; the table is loaded once at startup.
type ModelLookup interface {
	// Cost returns the USD cost for the given token counts. Unknown
	// provider/model pairs cost 0.
	Cost(provider, model string, inputTokens, outputTokens int) float64

	// MaxOutputTokens returns the model's default output-token ceiling,
	// falling back to a global default for unknown models.
	MaxOutputTokens(provider, model string) int
}
