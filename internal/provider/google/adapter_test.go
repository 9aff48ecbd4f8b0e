package google_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/google"
)

func testRequest() *domain.CompletionRequest {
	return &domain.CompletionRequest{
		Provider: domain.ProviderGoogle,
		Model:    "gemini-2.5-flash",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "Answer briefly."},
			{Role: domain.RoleUser, Content: "Hello"},
			{Role: domain.RoleAssistant, Content: "Hi."},
			{Role: domain.RoleUser, Content: "Bye"},
		},
		Temperature: 0.7,
		MaxTokens:   2048,
		APIKeys:     map[string]string{domain.ProviderGoogle: "AIza-test&key"},
	}
}

func TestAdapter_Complete(t *testing.T) {
	t.Run("remaps conversation into gemini shape", func(t *testing.T) {
		var gotPath, gotKey string
		var gotBody map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.URL.Query().Get("key")
			require.Empty(t, r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			fmt.Fprint(w, `{
				"candidates": [{"content": {"parts": [{"text": "Goodbye."}]}}],
				"usageMetadata": {"promptTokenCount": 15, "candidatesTokenCount": 3}
			}`)
		}))
		defer server.Close()

		adapter := google.New(google.Config{BaseURL: server.URL})
		result, err := adapter.Complete(context.Background(), testRequest())

		require.NoError(t, err)
		require.Equal(t, "Goodbye.", result.Text)
		require.Equal(t, "gemini-2.5-flash", result.Model)
		require.Equal(t, 15, result.Usage.InputTokens)
		require.Equal(t, 3, result.Usage.OutputTokens)

		require.Equal(t, "/models/gemini-2.5-flash:generateContent", gotPath)
		require.Equal(t, "AIza-test&key", gotKey)

		contents, ok := gotBody["contents"].([]any)
		require.True(t, ok)
		require.Len(t, contents, 3)
		roles := make([]string, len(contents))
		for i, c := range contents {
			entry := c.(map[string]any)
			roles[i] = entry["role"].(string)
			parts := entry["parts"].([]any)
			require.Len(t, parts, 1)
		}
		require.Equal(t, []string{"user", "model", "user"}, roles)

		system, ok := gotBody["systemInstruction"].(map[string]any)
		require.True(t, ok)
		parts := system["parts"].([]any)
		require.Equal(t, "Answer briefly.", parts[0].(map[string]any)["text"])

		genCfg := gotBody["generationConfig"].(map[string]any)
		require.Equal(t, 0.7, genCfg["temperature"])
		require.Equal(t, float64(2048), genCfg["maxOutputTokens"])
	})

	t.Run("no systemInstruction without system turns", func(t *testing.T) {
		var gotBody map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			fmt.Fprint(w, `{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`)
		}))
		defer server.Close()

		req := testRequest()
		req.Messages = []domain.Message{{Role: domain.RoleUser, Content: "Hello"}}

		adapter := google.New(google.Config{BaseURL: server.URL})
		_, err := adapter.Complete(context.Background(), req)

		require.NoError(t, err)
		require.NotContains(t, gotBody, "systemInstruction")
	})

	t.Run("no candidates is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"candidates": []}`)
		}))
		defer server.Close()

		adapter := google.New(google.Config{BaseURL: server.URL})
		_, err := adapter.Complete(context.Background(), testRequest())

		require.ErrorContains(t, err, "no response from Google API")
	})

	t.Run("candidate without parts is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"candidates": [{"content": {"parts": []}}]}`)
		}))
		defer server.Close()

		adapter := google.New(google.Config{BaseURL: server.URL})
		_, err := adapter.Complete(context.Background(), testRequest())

		require.ErrorContains(t, err, "empty response from Google API")
	})

	t.Run("error status surfaces as provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error": {"message": "API key not valid"}}`)
		}))
		defer server.Close()

		adapter := google.New(google.Config{BaseURL: server.URL})
		_, err := adapter.Complete(context.Background(), testRequest())

		var provErr *domain.ProviderError
		require.ErrorAs(t, err, &provErr)
		require.Equal(t, http.StatusForbidden, provErr.StatusCode)
		require.Contains(t, provErr.Message, "API key not valid")
	})

	t.Run("missing credential fails without a request", func(t *testing.T) {
		adapter := google.New(google.Config{BaseURL: "http://127.0.0.1:0"})

		req := testRequest()
		req.APIKeys = nil
		_, err := adapter.Complete(context.Background(), req)

		require.ErrorIs(t, err, domain.ErrMissingCredential)
	})
}

func TestAdapter_Stream(t *testing.T) {
	t.Run("yields part texts per array element", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			flusher, ok := w.(http.Flusher)
			require.True(t, ok)

			io.WriteString(w, `[{"candidates": [{"content": {"parts": [{"text": "Hel"}]}}]},`)
			flusher.Flush()
			io.WriteString(w, `{"candidates": [{"content": {"parts": [{"text": "lo"}, {"text": "!"}]}}]},`)
			flusher.Flush()
			io.WriteString(w, `{"candidates": []}]`)
		}))
		defer server.Close()

		adapter := google.New(google.Config{BaseURL: server.URL})
		chunks, err := adapter.Stream(context.Background(), testRequest())
		require.NoError(t, err)

		var got []string
		for chunk := range chunks {
			require.NoError(t, chunk.Err)
			got = append(got, chunk.Delta)
		}
		require.Equal(t, []string{"Hel", "lo", "!"}, got)
		require.Equal(t, "/models/gemini-2.5-flash:streamGenerateContent", gotPath)
	})

	t.Run("error status fails before any chunk", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error": {"message": "try again later"}}`)
		}))
		defer server.Close()

		adapter := google.New(google.Config{BaseURL: server.URL})
		chunks, err := adapter.Stream(context.Background(), testRequest())

		require.Error(t, err)
		require.Nil(t, chunks)
	})
}
