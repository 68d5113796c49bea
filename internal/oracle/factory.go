package oracle

import (
	"context"
	"fmt"
	"strings"
)

// Config holds oracle configuration
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64

	// API keys by provider; only the selected provider's key is used
	AnthropicKey string
	OpenAIKey    string
	GeminiKey    string

	// MaxRetries > 1 wraps the provider with WithRetry. Zero makes exactly
	// one call per request.
	MaxRetries int

	// ReplyStorePath, when set, persists replies across runs with WithReplyStore
	ReplyStorePath string

	// MockReply is the fallback reply of the mock provider
	MockReply string
}

// New creates an oracle with explicit configuration. Wrappers are applied
// retry, then cache, then reply store, so a cached reply never costs a retry.
// Release the result with Close.
func New(ctx context.Context, cfg Config) (Oracle, error) {
	var (
		o   Oracle
		err error
	)

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderAnthropic:
		o, err = NewAnthropicProvider(cfg.options(cfg.AnthropicKey))
	case ProviderOpenAI:
		o, err = NewOpenAIProvider(cfg.options(cfg.OpenAIKey))
	case ProviderGemini:
		o, err = NewGeminiProvider(ctx, cfg.options(cfg.GeminiKey))
	case ProviderMock:
		o = NewMockProvider(cfg.MockReply)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupported, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxRetries > 1 {
		rc := DefaultRetryConfig()
		rc.MaxRetries = cfg.MaxRetries
		o = WithRetry(o, rc)
	}
	if cfg.ReplyStorePath != "" {
		store, err := OpenReplyStore(cfg.ReplyStorePath)
		if err != nil {
			return nil, err
		}
		o = WithReplyStore(o, store, provider+"/"+cfg.Model)
	}
	return o, nil
}

func (c Config) options(key string) ProviderOptions {
	return ProviderOptions{
		APIKey:      key,
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
}

// DetectProvider returns the provider implied by the configured keys when
// none is named: anthropic, then openai, then gemini, else mock
func DetectProvider(cfg Config) string {
	if cfg.Provider != "" {
		return strings.ToLower(cfg.Provider)
	}
	switch {
	case cfg.AnthropicKey != "":
		return ProviderAnthropic
	case cfg.OpenAIKey != "":
		return ProviderOpenAI
	case cfg.GeminiKey != "":
		return ProviderGemini
	}
	return ProviderMock
}
