package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davidbz/manifold/internal/catalog"
	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/observability"
)

const version = "1.0.0"

// charsPerToken is the length heuristic used for streaming metadata. The
// providers that stream here do not report usage at end of stream, so these
// counts are approximations, unlike the exact counts on non-streaming calls.
const charsPerToken = 4

// Handler handles HTTP requests.
type Handler struct {
	gateway *domain.GatewayService
	catalog *catalog.Catalog
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(gateway *domain.GatewayService, cat *catalog.Catalog) *Handler {
	return &Handler{
		gateway: gateway,
		catalog: cat,
	}
}

// chatEnvelope is the canonical request body accepted on /api/chat.
// Temperature is a pointer so an explicit 0 survives the default.
type chatEnvelope struct {
	Provider    string            `json:"provider"`
	Model       string            `json:"model"`
	Messages    []domain.Message  `json:"messages"`
	Temperature *float64          `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
	Stream      bool              `json:"stream"`
	APIKeys     map[string]string `json:"api_keys"`
}

// chatResponse is the non-streaming response body.
type chatResponse struct {
	Response     string  `json:"response"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
	ResponseTime float64 `json:"response_time"`
}

// streamMetadata is the trailing SSE frame closing a streamed chat.
type streamMetadata struct {
	Type         string  `json:"type"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
	ResponseTime float64 `json:"response_time"`
}

// HandleChat processes chat completion requests, streaming or not.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var envelope chatEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if envelope.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}
	if envelope.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}
	if len(envelope.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	if envelope.APIKeys[envelope.Provider] == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("API key for %s is required", envelope.Provider))
		return
	}

	temperature := domain.DefaultTemperature
	if envelope.Temperature != nil {
		temperature = *envelope.Temperature
	}

	req := &domain.CompletionRequest{
		Provider:    envelope.Provider,
		Model:       envelope.Model,
		Messages:    envelope.Messages,
		Temperature: temperature,
		MaxTokens:   envelope.MaxTokens,
		APIKeys:     envelope.APIKeys,
	}

	// Inject provider and model into context for downstream logging.
	ctx = observability.WithProvider(ctx, req.Provider)
	ctx = observability.WithModel(ctx, req.Model)

	logger := observability.FromContext(ctx)
	logger.Info("chat request received",
		observability.Bool("stream", envelope.Stream),
		observability.Int("messages", len(req.Messages)),
	)

	if envelope.Stream {
		h.handleStream(ctx, w, req, start)
		return
	}

	result, err := h.gateway.Complete(ctx, req)
	if err != nil {
		logger.Error("chat completion failed", observability.Error(err))
		writeError(w, statusForError(err), err.Error())
		return
	}

	logger.Info("chat completion succeeded",
		observability.Int("input_tokens", result.Usage.InputTokens),
		observability.Int("output_tokens", result.Usage.OutputTokens),
		observability.Float64("cost", result.Usage.Cost),
	)

	writeJSON(w, http.StatusOK, chatResponse{
		Response:     result.Text,
		Provider:     result.Provider,
		Model:        result.Model,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		Cost:         result.Usage.Cost,
		ResponseTime: time.Since(start).Seconds(),
	})
}

func (h *Handler) handleStream(
	ctx context.Context,
	w http.ResponseWriter,
	req *domain.CompletionRequest,
	start time.Time,
) {
	logger := observability.FromContext(ctx)

	chunks, err := h.gateway.Stream(ctx, req)
	if err != nil {
		logger.Error("stream failed", observability.Error(err))
		writeError(w, statusForError(err), err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	var outputChars int

	for {
		select {
		case <-ctx.Done():
			// Client disconnected; the producer stops on the same context.
			logger.Info("stream context done", observability.Error(ctx.Err()))
			return

		case chunk, open := <-chunks:
			if !open {
				h.writeStreamTrailer(w, flusher, req, outputChars, start)
				logger.Info("stream completed")
				return
			}

			if chunk.Err != nil {
				logger.Error("stream chunk error", observability.Error(chunk.Err))
				writeEvent(w, flusher, map[string]string{"error": chunk.Err.Error()})
				return
			}

			outputChars += len(chunk.Delta)
			writeEvent(w, flusher, map[string]string{"content": chunk.Delta})
		}
	}
}

// writeStreamTrailer emits the metadata frame and the [DONE] sentinel.
// Token counts are approximated at length/4; the providers that stream here
// omit usage accounting at end of stream.
func (h *Handler) writeStreamTrailer(
	w http.ResponseWriter,
	flusher http.Flusher,
	req *domain.CompletionRequest,
	outputChars int,
	start time.Time,
) {
	inputChars := 0
	for _, msg := range req.Messages {
		inputChars += len(msg.Content)
	}

	inputTokens := inputChars / charsPerToken
	outputTokens := outputChars / charsPerToken

	writeEvent(w, flusher, streamMetadata{
		Type:         "metadata",
		Provider:     req.Provider,
		Model:        req.Model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         h.catalog.Cost(req.Provider, req.Model, inputTokens, outputTokens),
		ResponseTime: time.Since(start).Seconds(),
	})

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// HandleModels returns the model catalog.
func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"models":    h.catalog.Models(),
		"providers": h.catalog.Providers(),
	})
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingCredential),
		errors.Is(err, domain.ErrUnsupportedProvider):
		return http.StatusBadRequest
	case domain.IsRateLimited(err):
		return http.StatusTooManyRequests
	case domain.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
