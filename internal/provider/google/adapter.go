// Package google adapts the Google Gemini generateContent API. Gemini is the
// furthest from the OpenAI schema: the API key travels as a URL query
// parameter, assistant turns are remapped to the "model" role, every message
// body is wrapped in a one-element parts array, and the system prompt
// becomes a top-level systemInstruction field.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/transport"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	roleUser  = "user"
	roleModel = "model"
)

// Config contains Google adapter settings.
type Config struct {
	BaseURL string `env:"GOOGLE_BASE_URL"`
}

// Adapter implements domain.Provider for Google Gemini.
type Adapter struct {
	baseURL      string
	callClient   *http.Client
	streamClient *http.Client
}

// New builds the Google provider adapter.
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
func (a *Adapter) Name() string { return domain.ProviderGoogle }

// SupportsStreaming reports native streaming support.
func (a *Adapter) SupportsStreaming() bool { return true }

// Wire schema.

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// buildRequest remaps the canonical conversation into Gemini shape. The
// first system-role message wins the systemInstruction field; unknown roles
// are dropped.
func (a *Adapter) buildRequest(req *domain.CompletionRequest) generateRequest {
	contents := make([]content, 0, len(req.Messages))
	var system *content

	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem:
			if system == nil {
				system = &content{Parts: []part{{Text: msg.Content}}}
			}
		case domain.RoleUser:
			contents = append(contents, content{Role: roleUser, Parts: []part{{Text: msg.Content}}})
		case domain.RoleAssistant:
			contents = append(contents, content{Role: roleModel, Parts: []part{{Text: msg.Content}}})
		}
	}

	return generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
		SystemInstruction: system,
	}
}

func (a *Adapter) post(
	ctx context.Context,
	httpClient *http.Client,
	req *domain.CompletionRequest,
	method string,
) (*http.Response, error) {
	payload, err := json.Marshal(a.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// The key is a query parameter; Gemini has no auth header.
	endpoint := fmt.Sprintf("%s/models/%s:%s?key=%s",
		a.baseURL, req.Model, method, url.QueryEscape(req.Credential()))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, transport.WrapError(domain.ProviderGoogle, err)
	}
	return resp, nil
}

// Complete sends a non-streaming completion request.
func (a *Adapter) Complete(
	ctx context.Context,
	req *domain.CompletionRequest,
) (*domain.CompletionResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if req.Credential() == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingCredential, domain.ProviderGoogle)
	}

	resp, err := a.post(ctx, a.callClient, req, "generateContent")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, transport.DecodeError(domain.ProviderGoogle, resp.StatusCode, body)
	}

	var result generateResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode google response: %w", decodeErr)
	}

	if len(result.Candidates) == 0 {
		return nil, errors.New("no response from Google API")
	}
	candidate := result.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return nil, errors.New("empty response from Google API")
	}

	// Gemini does not echo the model identifier; report the requested one.
	return &domain.CompletionResult{
		Text:  candidate.Content.Parts[0].Text,
		Model: req.Model,
		Usage: domain.Usage{
			InputTokens:  result.UsageMetadata.PromptTokenCount,
			OutputTokens: result.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

// Stream sends a streaming completion request. The body is a JSON array
// streamed incrementally; fragments are yielded per complete array element
// as it can be extracted, never after buffering the whole body.
func (a *Adapter) Stream(
	ctx context.Context,
	req *domain.CompletionRequest,
) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if req.Credential() == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingCredential, domain.ProviderGoogle)
	}

	//nolint:bodyclose // Body is closed in the reader goroutine
	resp, err := a.post(ctx, a.streamClient, req, "streamGenerateContent")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, transport.DecodeError(domain.ProviderGoogle, resp.StatusCode, body)
	}

	chunks := make(chan domain.StreamChunk)
	go a.readStream(ctx, resp.Body, chunks)

	return chunks, nil
}

func (a *Adapter) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- domain.StreamChunk) {
	defer close(chunks)
	defer body.Close()

	decoder := &arrayDecoder{}
	buf := make([]byte, 4096)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			decoder.feed(buf[:n])
			if !a.drainDecoder(ctx, decoder, chunks) {
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				transport.Emit(ctx, chunks, domain.StreamChunk{
					Err: transport.WrapError(domain.ProviderGoogle, err),
				})
			}
			return
		}
	}
}

// drainDecoder yields the text of every complete object currently buffered.
// It returns false when the consumer has gone away.
func (a *Adapter) drainDecoder(
	ctx context.Context,
	decoder *arrayDecoder,
	chunks chan<- domain.StreamChunk,
) bool {
	for {
		obj, ok := decoder.next()
		if !ok {
			return true
		}

		var result generateResponse
		if err := json.Unmarshal(obj, &result); err != nil {
			// An extracted but unparsable object is skipped.
			continue
		}

		if len(result.Candidates) == 0 {
			continue
		}

		for _, p := range result.Candidates[0].Content.Parts {
			if p.Text == "" {
				continue
			}
			if !transport.Emit(ctx, chunks, domain.StreamChunk{Delta: p.Text}) {
				return false
			}
		}
	}
}
