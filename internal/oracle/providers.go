package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Provider configuration
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"

	// Default models
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultGeminiModel    = "gemini-2.0-flash"

	// Default endpoints
	DefaultAnthropicURL = "https://api.anthropic.com/v1"
	DefaultOpenAIURL    = "https://api.openai.com/v1"

	anthropicVersion = "2023-06-01"

	DefaultMaxTokens = 1000
	DefaultTimeout   = 60 * time.Second
)

// ProviderOptions are shared by the HTTP and SDK providers
type ProviderOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

func (o ProviderOptions) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (o ProviderOptions) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return DefaultMaxTokens
}

// AnthropicProvider implements Oracle using the Anthropic Messages API
type AnthropicProvider struct {
	opts       ProviderOptions
	httpClient *http.Client
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates a new Anthropic oracle
func NewAnthropicProvider(opts ProviderOptions) (*AnthropicProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s requires an API key", ErrNoProviderEnabled, ProviderAnthropic)
	}
	if opts.Model == "" {
		opts.Model = DefaultAnthropicModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAnthropicURL
	}
	return &AnthropicProvider{opts: opts, httpClient: opts.httpClient()}, nil
}

func (a *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := ValidateRequest(req); err != nil {
		return "", err
	}

	body := anthropicRequest{
		Model:       a.opts.Model,
		MaxTokens:   a.opts.maxTokens(),
		Temperature: a.opts.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
	}

	headers := map[string]string{
		"x-api-key":         a.opts.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, a.httpClient, strings.TrimRight(a.opts.BaseURL, "/")+"/messages", headers, body, &resp); err != nil {
		return "", providerError(ProviderAnthropic, err)
	}
	if resp.Error != nil {
		return "", providerError(ProviderAnthropic, fmt.Errorf("%s: %s", resp.Error.Type, resp.Error.Message))
	}

	var out strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			out.WriteString(c.Text)
		}
	}
	if out.Len() == 0 {
		return "", providerError(ProviderAnthropic, ErrEmptyResponse)
	}
	return out.String(), nil
}

func (a *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// OpenAIProvider implements Oracle against any OpenAI-compatible chat
// completion endpoint
type OpenAIProvider struct {
	opts       ProviderOptions
	httpClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIProvider creates a new OpenAI-compatible oracle. An API key is
// optional so local gateways without auth work.
func NewOpenAIProvider(opts ProviderOptions) (*OpenAIProvider, error) {
	if opts.APIKey == "" && opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: %s requires an API key or base URL", ErrNoProviderEnabled, ProviderOpenAI)
	}
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOpenAIURL
	}
	return &OpenAIProvider{opts: opts, httpClient: opts.httpClient()}, nil
}

func (o *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := ValidateRequest(req); err != nil {
		return "", err
	}

	body := chatRequest{
		Model:       o.opts.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   o.opts.maxTokens(),
		Temperature: o.opts.Temperature,
	}

	headers := map[string]string{}
	if o.opts.APIKey != "" {
		headers["Authorization"] = "Bearer " + o.opts.APIKey
	}

	var resp chatResponse
	if err := postJSON(ctx, o.httpClient, strings.TrimRight(o.opts.BaseURL, "/")+"/chat/completions", headers, body, &resp); err != nil {
		return "", providerError(ProviderOpenAI, err)
	}
	if resp.Error != nil {
		return "", providerError(ProviderOpenAI, fmt.Errorf("%s", resp.Error.Message))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", providerError(ProviderOpenAI, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

// GeminiProvider implements Oracle using the Google GenAI SDK
type GeminiProvider struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiProvider creates a new Gemini oracle
func NewGeminiProvider(ctx context.Context, opts ProviderOptions) (*GeminiProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s requires an API key", ErrNoProviderEnabled, ProviderGemini)
	}
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  opts.Model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(float32(opts.Temperature)),
			MaxOutputTokens: int32(opts.maxTokens()),
		},
	}, nil
}

func (g *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := ValidateRequest(req); err != nil {
		return "", err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), g.config)
	if err != nil {
		return "", providerError(ProviderGemini, err)
	}

	text := resp.Text()
	if text == "" {
		return "", providerError(ProviderGemini, ErrEmptyResponse)
	}
	return text, nil
}

func (g *GeminiProvider) Name() string {
	return ProviderGemini
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
