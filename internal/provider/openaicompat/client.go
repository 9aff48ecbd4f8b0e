// Package openaicompat implements the OpenAI chat-completions wire protocol.
// Four of the six providers speak it (OpenAI, xAI, DeepSeek, Groq); they
// differ only in base URL, the name of the output-token ceiling field,
// temperature handling, and rate-limit reporting, all captured in Config.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/sse"
	"github.com/davidbz/manifold/internal/provider/transport"
)

const doneSentinel = "[DONE]"

// TokenLimitField selects the output-token ceiling field name; schema
// versions differ between vendors.
type TokenLimitField string

const (
	FieldMaxTokens           TokenLimitField = "max_tokens"
	FieldMaxCompletionTokens TokenLimitField = "max_completion_tokens"
)

// Config describes one OpenAI-compatible vendor endpoint.
type Config struct {
	// Name is the canonical provider identifier.
	Name string

	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string

	// TokenLimitField names the output-token ceiling field in the payload.
	TokenLimitField TokenLimitField

	// OmitTemperature reports whether the model rejects a temperature
	// parameter; nil means temperature is always sent.
	OmitTemperature func(model string) bool

	// Streaming marks native SSE streaming support.
	Streaming bool

	// RateLimitStatus, when non-zero, maps that HTTP status to
	// domain.ErrRateLimited instead of a generic provider error.
	RateLimitStatus int
}

// Client implements domain.Provider over the OpenAI chat-completions schema.
type Client struct {
	cfg          Config
	callClient   *http.Client
	streamClient *http.Client
}

// New creates a client for one OpenAI-compatible endpoint.
func New(cfg Config) *Client {
	return &Client{
		cfg:          cfg,
		callClient:   transport.NewClient(transport.CallTimeout),
		streamClient: transport.NewClient(transport.StreamTimeout),
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string { return c.cfg.Name }

// SupportsStreaming reports whether the provider streams natively.
func (c *Client) SupportsStreaming() bool { return c.cfg.Streaming }

// Wire schema.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         *float64      `json:"temperature,omitempty"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Stream              bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *Client) buildRequest(req *domain.CompletionRequest, stream bool) chatRequest {
	messages := make([]chatMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	wire := chatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   stream,
	}

	switch c.cfg.TokenLimitField {
	case FieldMaxCompletionTokens:
		wire.MaxCompletionTokens = req.MaxTokens
	default:
		wire.MaxTokens = req.MaxTokens
	}

	if c.cfg.OmitTemperature == nil || !c.cfg.OmitTemperature(req.Model) {
		temperature := req.Temperature
		wire.Temperature = &temperature
	}

	return wire
}

func (c *Client) post(
	ctx context.Context,
	httpClient *http.Client,
	credential string,
	body chatRequest,
	accept string,
) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)
	if accept != "" {
		httpReq.Header.Set("Accept", accept)
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, transport.WrapError(c.cfg.Name, err)
	}
	return resp, nil
}

// statusError consumes the body of a non-2xx response and turns it into the
// matching error kind.
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	if c.cfg.RateLimitStatus != 0 && resp.StatusCode == c.cfg.RateLimitStatus {
		return fmt.Errorf("%s: %w, please wait and try again", c.cfg.Name, domain.ErrRateLimited)
	}

	return transport.DecodeError(c.cfg.Name, resp.StatusCode, body)
}

// Complete sends a non-streaming completion request.
func (c *Client) Complete(
	ctx context.Context,
	req *domain.CompletionRequest,
) (*domain.CompletionResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if req.Credential() == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingCredential, c.cfg.Name)
	}

	resp, err := c.post(ctx, c.callClient, req.Credential(), c.buildRequest(req, false), "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var result chatResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", c.cfg.Name, decodeErr)
	}

	text := ""
	if len(result.Choices) > 0 {
		text = result.Choices[0].Message.Content
	}

	model := result.Model
	if model == "" {
		model = req.Model
	}

	return &domain.CompletionResult{
		Text:  text,
		Model: model,
		Usage: domain.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
	}, nil
}

// Stream sends a streaming completion request, yielding delta fragments in
// arrival order. Malformed individual events are skipped; a literal [DONE]
// payload ends the stream.
func (c *Client) Stream(
	ctx context.Context,
	req *domain.CompletionRequest,
) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if req.Credential() == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingCredential, c.cfg.Name)
	}
	if !c.cfg.Streaming {
		return nil, fmt.Errorf("%s has no native streaming support", c.cfg.Name)
	}

	//nolint:bodyclose // Body is closed in the reader goroutine
	resp, err := c.post(ctx, c.streamClient, req.Credential(), c.buildRequest(req, true), "text/event-stream")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.statusError(resp)
	}

	chunks := make(chan domain.StreamChunk)
	go c.readStream(ctx, resp.Body, chunks)

	return chunks, nil
}

func (c *Client) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- domain.StreamChunk) {
	defer close(chunks)
	defer body.Close()

	scanner := sse.NewScanner(body)
	for {
		payload, err := scanner.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				transport.Emit(ctx, chunks, domain.StreamChunk{Err: transport.WrapError(c.cfg.Name, err)})
			}
			return
		}

		if payload == doneSentinel {
			return
		}

		var chunk chatStreamChunk
		if unmarshalErr := json.Unmarshal([]byte(payload), &chunk); unmarshalErr != nil {
			// Malformed events are skipped, not fatal.
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if !transport.Emit(ctx, chunks, domain.StreamChunk{Delta: delta}) {
				return
			}
		}
	}
}
