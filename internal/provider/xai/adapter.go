// Package xai adapts the xAI Grok API, an OpenAI-compatible endpoint with
// no native streaming path in this gateway.
package xai

import (
	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/openaicompat"
)

const defaultBaseURL = "https://api.x.ai/v1"

// Config contains xAI adapter settings.
type Config struct {
	BaseURL string `env:"XAI_BASE_URL"`
}

// New builds the xAI provider adapter.
func New(cfg Config) *openaicompat.Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return openaicompat.New(openaicompat.Config{
		Name:            domain.ProviderXAI,
		BaseURL:         baseURL,
		TokenLimitField: openaicompat.FieldMaxTokens,
	})
}
