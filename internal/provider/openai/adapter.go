// Package openai adapts the OpenAI chat completions API. OpenAI is the
// schema's reference implementation but carries two quirks of its own: the
// output-token ceiling travels as max_completion_tokens, and reasoning-tier
// models reject a temperature parameter outright.
package openai

import (
	"strings"

	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/openaicompat"
)

const defaultBaseURL = "https://api.openai.com/v1"

// reasoningPrefixes marks model tiers that reject a temperature parameter.
var reasoningPrefixes = []string{"o1", "o3"}

// Config contains OpenAI adapter settings.
type Config struct {
	BaseURL string `env:"OPENAI_BASE_URL"`
}

// New builds the OpenAI provider adapter.
func New(cfg Config) *openaicompat.Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return openaicompat.New(openaicompat.Config{
		Name:            domain.ProviderOpenAI,
		BaseURL:         baseURL,
		TokenLimitField: openaicompat.FieldMaxCompletionTokens,
		OmitTemperature: IsReasoningModel,
		Streaming:       true,
	})
}

// IsReasoningModel reports whether the model belongs to the o1/o3 reasoning
// tier. Matching is case-insensitive and also applies when the identifier
// carries a path-style prefix (e.g. "openrouter/o1-mini").
func IsReasoningModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range reasoningPrefixes {
		if strings.HasPrefix(lower, prefix) || strings.Contains(lower, "/"+prefix) {
			return true
		}
	}
	return false
}
