// Package provider assembles the closed set of adapters the gateway knows
// about. Adding a provider means extending this list (and the domain name
// constants); nothing is discovered dynamically.
package provider

import (
	"github.com/davidbz/manifold/internal/config"
	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/anthropic"
	"github.com/davidbz/manifold/internal/provider/deepseek"
	"github.com/davidbz/manifold/internal/provider/google"
	"github.com/davidbz/manifold/internal/provider/groq"
	"github.com/davidbz/manifold/internal/provider/openai"
	"github.com/davidbz/manifold/internal/provider/xai"
)

// All constructs the six provider adapters.
func All(cfg *config.ProvidersConfig) []domain.Provider {
	return []domain.Provider{
		openai.New(cfg.OpenAI),
		anthropic.New(cfg.Anthropic),
		google.New(cfg.Google),
		xai.New(cfg.XAI),
		deepseek.New(cfg.DeepSeek),
		groq.New(cfg.Groq),
	}
}
