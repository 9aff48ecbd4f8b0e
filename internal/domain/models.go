package domain

// Chat roles accepted in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider names recognized by the gateway. The set is closed; the registry
// is populated from exactly these six at startup.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderXAI       = "xai"
	ProviderDeepSeek  = "deepseek"
	ProviderGroq      = "groq"
)

// KnownProviders lists every provider the gateway can dispatch to.
var KnownProviders = []string{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGoogle,
	ProviderXAI,
	ProviderDeepSeek,
	ProviderGroq,
}

// Message represents a single chat turn.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// CompletionRequest represents a unified chat completion request.
// API keys are supplied by the caller per request; the gateway holds no
// provider credentials of its own.
type CompletionRequest struct {
	Provider    string            `json:"provider"`
	Model       string            `json:"model"`
	Messages    []Message         `json:"messages"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	APIKeys     map[string]string `json:"-"`
}

// Credential returns the caller-supplied key for the requested provider,
// or "" when none was given.
func (r *CompletionRequest) Credential() string {
	return r.APIKeys[r.Provider]
}

// CompletionResult represents a unified chat completion response.
// Model is the identifier the provider actually served, which may be more
// specific than the one requested.
type CompletionResult struct {
	Text     string `json:"response"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Usage    Usage  `json:"usage"`
}

// Usage tracks token consumption and the cost derived from it.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// StreamChunk is a single text fragment produced by a streaming call.
// A chunk with a non-nil Err terminates the stream; fragments already
// delivered remain valid.
type StreamChunk struct {
	Delta string
	Err   error
}
