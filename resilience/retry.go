package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, the first one included.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64 `yaml:"jitter" mapstructure:"jitter" validate:"gte=0,lte=1"`

	// RetryIf decides whether an error is retried. Defaults to DefaultRetryIf.
	RetryIf func(error) bool `yaml:"-" mapstructure:"-"`
	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, backoff time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	cfg := RetryConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero-value fields.
func (c *RetryConfig) ApplyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2.0
	}
	if c.RetryIf == nil {
		c.RetryIf = DefaultRetryIf
	}
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Retry runs fn until it succeeds, RetryIf rejects the error, the attempts
// are used up or ctx is done. It returns the last result and error.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg.ApplyDefaults()

	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !cfg.RetryIf(err) || attempt == cfg.MaxAttempts {
			break
		}

		backoff := cfg.Backoff(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}
		if err := Sleep(ctx, backoff); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// Backoff returns the delay after the given attempt:
// InitialBackoff * BackoffFactor^(attempt-1), jittered and capped at MaxBackoff.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	d := float64(c.InitialBackoff) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if c.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * c.Jitter
	}
	if d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	if d < 0 {
		d = float64(c.InitialBackoff)
	}
	return time.Duration(d)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
