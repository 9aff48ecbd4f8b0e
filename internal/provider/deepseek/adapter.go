// Package deepseek adapts the DeepSeek API, an OpenAI-compatible endpoint
// with no native streaming path in this gateway.
package deepseek

import (
	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/openaicompat"
)

const defaultBaseURL = "https://api.deepseek.com/v1"

// Config contains DeepSeek adapter settings.
type Config struct {
	BaseURL string `env:"DEEPSEEK_BASE_URL"`
}

// New builds the DeepSeek provider adapter.
func New(cfg Config) *openaicompat.Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return openaicompat.New(openaicompat.Config{
		Name:            domain.ProviderDeepSeek,
		BaseURL:         baseURL,
		TokenLimitField: openaicompat.FieldMaxTokens,
	})
}
