// Package groq adapts the Groq API, an OpenAI-compatible endpoint. Groq's
// free tier throttles aggressively, so a 429 is surfaced as a distinct
// rate-limit error rather than a generic provider failure.
package groq

import (
	"net/http"

	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/openaicompat"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Config contains Groq adapter settings.
type Config struct {
	BaseURL string `env:"GROQ_BASE_URL"`
}

// New builds the Groq provider adapter.
func New(cfg Config) *openaicompat.Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return openaicompat.New(openaicompat.Config{
		Name:            domain.ProviderGroq,
		BaseURL:         baseURL,
		TokenLimitField: openaicompat.FieldMaxTokens,
		RateLimitStatus: http.StatusTooManyRequests,
	})
}
