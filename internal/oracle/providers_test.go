package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProvider_Complete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Score: 0.8"},{"type":"text","text":"\nReason: ok"}]}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(ProviderOptions{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), Request{Capability: "x", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Score: 0.8\nReason: ok", text)
	assert.Equal(t, DefaultAnthropicModel, got.Model)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestAnthropicProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit","message":"slow down"}}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(ProviderOptions{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), Request{Prompt: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Contains(t, err.Error(), "429")
}

func TestAnthropicProvider_RequiresKey(t *testing.T) {
	_, err := NewAnthropicProvider(ProviderOptions{})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "local-model", req.Model)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"relevant\": true}"}}]}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(ProviderOptions{APIKey: "sk-test", BaseURL: srv.URL, Model: "local-model"})
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, `{"relevant": true}`, text)
}

func TestOpenAIProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model not found"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(ProviderOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), Request{Prompt: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(ProviderOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), Request{Prompt: "hello"})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestProviders_RejectEmptyPrompt(t *testing.T) {
	p, err := NewOpenAIProvider(ProviderOptions{BaseURL: "http://unused"})
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), ProviderOptions{})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}
