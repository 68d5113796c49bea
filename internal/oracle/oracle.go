package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("oracle provider failed")
	ErrUnsupported       = errors.New("unsupported provider")
	ErrEmptyPrompt       = errors.New("prompt cannot be empty")
	ErrNoProviderEnabled = errors.New("no oracle provider configured")
	ErrEmptyResponse     = errors.New("oracle returned no text")
)

// Request is one call to the external model
type Request struct {
	// Capability names the task, e.g. "eval_criteria_identifier". Providers
	// ignore it; the cache and the scripted mock key on it.
	Capability string

	// Prompt is the complete text sent to the model
	Prompt string

	// Text is the fragment the prompt was built around, kept for logging
	Text string
}

// Oracle returns free-form model text for a prompt
type Oracle interface {
	// Complete makes exactly one model call
	Complete(ctx context.Context, req Request) (string, error)

	// Name returns the provider name
	Name() string
}

// ValidateRequest validates an oracle request
func ValidateRequest(req Request) error {
	if req.Prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// ComputeHash computes the SHA-256 cache key for a request
func ComputeHash(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.Capability))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// DefaultCacheSize is the completion cache capacity used when none is given
const DefaultCacheSize = 1000

// Cache is an in-memory LRU of completions keyed by request hash
type Cache struct {
	cache *lru.Cache[string, string]
}

// NewCache creates a new completion cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[string, string](maxLen)
	if err != nil {
		cache, _ = lru.New[string, string](DefaultCacheSize)
	}
	return &Cache{cache: cache}
}

// Get retrieves a cached completion
func (c *Cache) Get(hash string) (string, bool) {
	return c.cache.Get(hash)
}

// Set stores a completion
func (c *Cache) Set(hash, text string) {
	c.cache.Add(hash, text)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// cached serves repeated identical requests from a Cache. Only successful
// completions are stored.
type cached struct {
	next  Oracle
	cache *Cache
}

// WithCache wraps o so identical capability+prompt pairs reach the provider
// once. The cache belongs to the wrapper, so a wrapper built per run never
// shares entries with another run.
func WithCache(o Oracle, cache *Cache) Oracle {
	if cache == nil {
		cache = NewCache(0)
	}
	return &cached{next: o, cache: cache}
}

func (c *cached) Complete(ctx context.Context, req Request) (string, error) {
	hash := ComputeHash(req)
	if text, ok := c.cache.Get(hash); ok {
		return text, nil
	}
	text, err := c.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	c.cache.Set(hash, text)
	return text, nil
}

func (c *cached) Name() string {
	return c.next.Name()
}

// Func adapts a function to the Oracle interface
type Func func(ctx context.Context, req Request) (string, error)

// Complete calls f
func (f Func) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Name returns "func"
func (f Func) Name() string {
	return "func"
}

func providerError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrProviderFailed, provider, err)
}
