package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/davidbz/manifold/internal/observability"
)

const secondsPerMinute = 60.0

// Limiter decides whether a client may proceed.
type Limiter interface {
	// Allow reports whether the client identified by key is within its
	// allowance.
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter applies a per-client token bucket held in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewMemoryLimiter creates an in-process limiter allowing perMinute requests
// per client.
func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		mu:      sync.Mutex{},
		clients: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(perMinute) / secondsPerMinute),
		burst:   perMinute,
	}
}

// Allow reports whether the client is within its allowance.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.clients[key]
	if !exists {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients[key] = limiter
	}

	return limiter.Allow(), nil
}

// RedisLimiter counts requests in fixed one-minute windows so multiple
// gateway replicas share one allowance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
}

// NewRedisLimiter creates a Redis-backed limiter allowing perMinute requests
// per client.
func NewRedisLimiter(client *redis.Client, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  perMinute,
	}
}

// Allow reports whether the client is within its allowance.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := time.Now().UTC().Format("200601021504")
	counterKey := fmt.Sprintf("ratelimit:%s:%s", key, window)

	count, err := l.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit counter failed: %w", err)
	}

	if count == 1 {
		// First hit in this window sets the expiry.
		l.client.Expire(ctx, counterKey, time.Minute)
	}

	return count <= int64(l.limit), nil
}

// RateLimit rejects clients that exceed their allowance with 429. Limiter
// backend errors do not block requests.
func RateLimit(limiter Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				key = r.RemoteAddr
			}

			allowed, limitErr := limiter.Allow(ctx, key)
			if limitErr != nil {
				observability.FromContext(ctx).Warn("rate limiter unavailable",
					observability.Error(limitErr))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "Rate limit exceeded. Please slow down.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
