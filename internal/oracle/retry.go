package oracle

import (
	"context"
	"time"
)

// Retry defaults
const (
	MaxRetries        = 3
	InitialBackoffMs  = 250
	MaxBackoffMs      = 8000
	BackoffMultiplier = 2.0
)

// RetryConfig configures exponential backoff retry behavior
type RetryConfig struct {
	MaxRetries int           // Maximum number of attempts
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
	Multiplier float64       // Exponential backoff multiplier
}

// DefaultRetryConfig returns sensible defaults for API retry
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: MaxRetries,
		BaseDelay:  time.Duration(InitialBackoffMs) * time.Millisecond,
		MaxDelay:   time.Duration(MaxBackoffMs) * time.Millisecond,
		Multiplier: BackoffMultiplier,
	}
}

// retryWithBackoff executes a function with exponential backoff retry logic.
// Retry is skipped on context cancellation.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T
	backoff := config.BaseDelay

	attempts := config.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
				if backoff > config.MaxDelay {
					backoff = config.MaxDelay
				}
			}
		}
	}

	return zero, lastErr
}

type retrying struct {
	next   Oracle
	config RetryConfig
}

// WithRetry wraps o so a failed call is re-invoked with backoff. The router
// never retries on its own; this is how callers opt in.
func WithRetry(o Oracle, config RetryConfig) Oracle {
	return &retrying{next: o, config: config}
}

func (r *retrying) Complete(ctx context.Context, req Request) (string, error) {
	return retryWithBackoff(ctx, r.config, func() (string, error) {
		return r.next.Complete(ctx, req)
	})
}

func (r *retrying) Name() string {
	return r.next.Name()
}
