// Package config loads gateway configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/manifold/internal/provider/anthropic"
	"github.com/davidbz/manifold/internal/provider/deepseek"
	"github.com/davidbz/manifold/internal/provider/google"
	"github.com/davidbz/manifold/internal/provider/groq"
	"github.com/davidbz/manifold/internal/provider/openai"
	"github.com/davidbz/manifold/internal/provider/xai"
)

// Config represents the gateway configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Providers ProvidersConfig
}

// ServerConfig contains HTTP server settings. WriteTimeout defaults to 0
// (disabled): streaming responses can run for minutes and a write deadline
// would cut them off.
type ServerConfig struct {
	Port         int    `env:"SERVER_PORT"          envDefault:"8000"`
	ReadTimeout  int    `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int    `env:"SERVER_WRITE_TIMEOUT" envDefault:"0"`
	StaticDir    string `env:"STATIC_DIR"           envDefault:"static"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// RateLimitConfig contains per-client chat rate limit settings. When
// RedisAddr is set the allowance is counted in Redis so multiple gateway
// replicas share it; otherwise an in-process limiter is used.
type RateLimitConfig struct {
	ChatPerMinute int    `env:"RATE_LIMIT_CHAT_PER_MINUTE" envDefault:"30"`
	RedisAddr     string `env:"RATE_LIMIT_REDIS_ADDR"`
	RedisPassword string `env:"RATE_LIMIT_REDIS_PASSWORD"`
	RedisDB       int    `env:"RATE_LIMIT_REDIS_DB"        envDefault:"0"`
}

// ProvidersConfig groups per-adapter settings. Base URLs default to the real
// vendor endpoints; overrides exist for tests and proxies.
type ProvidersConfig struct {
	OpenAI    openai.Config
	Anthropic anthropic.Config
	Google    google.Config
	XAI       xai.Config
	DeepSeek  deepseek.Config
	Groq      groq.Config
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*RateLimitConfig
	*ProvidersConfig
}

// Load loads environment files and parses configuration.
func Load() (*Config, error) {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.RateLimit,
		&cfg.Providers,
	}
}
