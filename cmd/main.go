package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/davidbz/manifold/internal/catalog"
	"github.com/davidbz/manifold/internal/config"
	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/httpserver"
	"github.com/davidbz/manifold/internal/httpserver/middleware"
	"github.com/davidbz/manifold/internal/observability"
	"github.com/davidbz/manifold/internal/provider"
	"github.com/davidbz/manifold/internal/provider/registry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *httpserver.Server) {
		go handleSignals(server)

		if startErr := server.Start(); startErr != nil {
			log.Fatalf("Server failed to start: %v", startErr)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func handleSignals(server *httpserver.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown failed: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}

	// Model catalog, doubling as the gateway's pricing lookup
	if err := container.Provide(catalog.Load); err != nil {
		log.Fatalf("Failed to provide model catalog: %v", err)
	}
	if err := container.Provide(func(cat *catalog.Catalog) domain.ModelLookup {
		return cat
	}); err != nil {
		log.Fatalf("Failed to provide model lookup: %v", err)
	}

	// Provider registry with the closed set of six adapters
	if err := container.Provide(func(cfg *config.ProvidersConfig) (domain.ProviderRegistry, error) {
		reg := registry.NewRegistry()
		ctx := context.Background()
		for _, p := range provider.All(cfg) {
			if regErr := reg.Register(ctx, p); regErr != nil {
				return nil, regErr
			}
		}
		return reg, nil
	}); err != nil {
		log.Fatalf("Failed to provide provider registry: %v", err)
	}

	// Domain services
	if err := container.Provide(domain.NewGatewayService); err != nil {
		log.Fatalf("Failed to provide gateway service: %v", err)
	}

	// HTTP layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(buildChatLimiter); err != nil {
		log.Fatalf("Failed to provide chat rate limiter: %v", err)
	}
	if err := container.Provide(httpserver.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(httpserver.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// buildChatLimiter selects the rate-limit backend: Redis when configured so
// replicas share one allowance, in-process otherwise.
func buildChatLimiter(cfg *config.RateLimitConfig) middleware.ChatLimiter {
	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiter = middleware.NewRedisLimiter(client, cfg.ChatPerMinute)
	} else {
		limiter = middleware.NewMemoryLimiter(cfg.ChatPerMinute)
	}

	return middleware.ChatLimiter(middleware.RateLimit(limiter))
}
