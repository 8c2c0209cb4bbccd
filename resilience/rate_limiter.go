package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Rate is the number of calls allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	// Burst is the bucket size. Defaults to Rate.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// RateLimiter is a token bucket shared by all calls to one downstream API.
type RateLimiter struct {
	rate  float64
	burst float64
	now   func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10
	}
	if config.Burst <= 0 {
		config.Burst = max(1, int(config.Rate))
	}
	rl := &RateLimiter{rate: config.Rate, burst: float64(config.Burst), now: time.Now}
	rl.tokens = rl.burst
	rl.last = rl.now()
	return rl
}

// Allow takes a token if one is available without waiting.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// Wait takes a token, sleeping until one is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if d := rl.reserve(); d > 0 {
		return Sleep(ctx, d)
	}
	return ctx.Err()
}

// reserve takes a token, going into debt when the bucket is empty, and
// returns how long the caller has to wait for it.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()

	rl.tokens--
	if rl.tokens >= 0 {
		return 0
	}
	return time.Duration(-rl.tokens / rl.rate * float64(time.Second))
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens = min(rl.burst, rl.tokens+now.Sub(rl.last).Seconds()*rl.rate)
	rl.last = now
}
