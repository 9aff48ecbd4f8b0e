// Package anthropic adapts the Anthropic Messages API. Anthropic departs
// from the OpenAI schema in three ways: authentication uses an x-api-key
// header plus a pinned API version, the system prompt is a top-level field
// rather than a message turn, and responses arrive as typed content blocks.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/sse"
	"github.com/davidbz/manifold/internal/provider/transport"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"

	eventContentBlockDelta = "content_block_delta"
	deltaTypeText          = "text_delta"
	blockTypeText          = "text"
)

// Config contains Anthropic adapter settings.
type Config struct {
	BaseURL string `env:"ANTHROPIC_BASE_URL"`
}

// Adapter implements domain.Provider for Anthropic.
type Adapter struct {
	baseURL      string
	callClient   *http.Client
	streamClient *http.Client
}

// New builds the Anthropic provider adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Adapter{
		baseURL:      baseURL,
		callClient:   transport.NewClient(transport.CallTimeout),
		streamClient: transport.NewClient(transport.StreamTimeout),
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string { return domain.ProviderAnthropic }

// SupportsStreaming reports native streaming support.
func (a *Adapter) SupportsStreaming() bool { return true }

// Wire schema.

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// buildRequest splits the system prompt away from the turn list: the
// messages array may only contain user/assistant turns, and the first
// system-role message wins the top-level system field.
func (a *Adapter) buildRequest(req *domain.CompletionRequest, stream bool) messagesRequest {
	system := ""
	turns := make([]message, 0, len(req.Messages))

	for _, msg := range req.Messages {
		if msg.Role == domain.RoleSystem {
			if system == "" {
				system = msg.Content
			}
			continue
		}
		turns = append(turns, message{Role: msg.Role, Content: msg.Content})
	}

	return messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    turns,
		System:      system,
		Stream:      stream,
	}
}

func (a *Adapter) post(
	ctx context.Context,
	httpClient *http.Client,
	credential string,
	body messagesRequest,
) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		a.baseURL+"/v1/messages",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", credential)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, transport.WrapError(domain.ProviderAnthropic, err)
	}
	return resp, nil
}

// Complete sends a non-streaming completion request. The response text is
// the concatenation of all text-typed content blocks.
func (a *Adapter) Complete(
	ctx context.Context,
	req *domain.CompletionRequest,
) (*domain.CompletionResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if req.Credential() == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingCredential, domain.ProviderAnthropic)
	}

	resp, err := a.post(ctx, a.callClient, req.Credential(), a.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, transport.DecodeError(domain.ProviderAnthropic, resp.StatusCode, body)
	}

	var result messagesResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode anthropic response: %w", decodeErr)
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == blockTypeText {
			text.WriteString(block.Text)
		}
	}

	model := result.Model
	if model == "" {
		model = req.Model
	}

	return &domain.CompletionResult{
		Text:  text.String(),
		Model: model,
		Usage: domain.Usage{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		},
	}, nil
}

// Stream sends a streaming completion request. Only content_block_delta
// events carrying a text_delta yield fragments; everything else on the wire
// (message_start, ping, message_stop) is skipped.
func (a *Adapter) Stream(
	ctx context.Context,
	req *domain.CompletionRequest,
) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if req.Credential() == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingCredential, domain.ProviderAnthropic)
	}

	//nolint:bodyclose // Body is closed in the reader goroutine
	resp, err := a.post(ctx, a.streamClient, req.Credential(), a.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, transport.DecodeError(domain.ProviderAnthropic, resp.StatusCode, body)
	}

	chunks := make(chan domain.StreamChunk)
	go a.readStream(ctx, resp.Body, chunks)

	return chunks, nil
}

func (a *Adapter) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- domain.StreamChunk) {
	defer close(chunks)
	defer body.Close()

	scanner := sse.NewScanner(body)
	for {
		payload, err := scanner.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				transport.Emit(ctx, chunks, domain.StreamChunk{
					Err: transport.WrapError(domain.ProviderAnthropic, err),
				})
			}
			return
		}

		var event streamEvent
		if unmarshalErr := json.Unmarshal([]byte(payload), &event); unmarshalErr != nil {
			// Malformed events are skipped, not fatal.
			continue
		}

		if event.Type != eventContentBlockDelta || event.Delta.Type != deltaTypeText {
			continue
		}

		if event.Delta.Text != "" {
			if !transport.Emit(ctx, chunks, domain.StreamChunk{Delta: event.Delta.Text}) {
				return
			}
		}
	}
}
