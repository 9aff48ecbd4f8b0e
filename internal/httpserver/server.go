package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davidbz/manifold/internal/config"
	"github.com/davidbz/manifold/internal/httpserver/middleware"
	"github.com/davidbz/manifold/internal/observability"
)

// Server represents the HTTP server.
type Server struct {
	config      config.ServerConfig
	handler     *Handler
	middlewares middleware.Middleware
	chatLimiter middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server (DI constructor). chatLimiter is
// applied to /api/chat only; the global chain wraps every route.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	middlewares middleware.Middleware,
	chatLimiter middleware.ChatLimiter,
) *Server {
	return &Server{
		config:      *cfg,
		handler:     handler,
		middlewares: middlewares,
		chatLimiter: middleware.Middleware(chatLimiter),
		srv:         nil,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Register routes.
	mux.Handle("/api/chat", s.chatLimiter(http.HandlerFunc(s.handler.HandleChat)))
	mux.HandleFunc("/api/models", s.handler.HandleModels)
	mux.HandleFunc("/api/health", s.handler.HandleHealth)

	// Web UI assets.
	mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.middlewares(mux),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server",
		observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
