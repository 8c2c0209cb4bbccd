package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/apikit/resilience"
)

const (
	defaultTimeout             = 30 * time.Second
	defaultMaxIdleConnsPerHost = 16
)

// Config configures one named HTTP client.
type Config struct {
	// Timeout is the overall request timeout. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxIdleConnsPerHost sizes the idle connection pool. Defaults to 16.
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host" validate:"gte=0"`

	// TLS configures TLS settings for the transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Headers are added to every request that does not already carry them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry retries idempotent requests. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`

	// CircuitBreaker fails fast while the API is unhealthy. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimit throttles outgoing requests. Nil disables it.
	RateLimit *resilience.RateLimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("httpclient: timeout must not be negative")
	}
	if c.MaxIdleConnsPerHost < 0 {
		return fmt.Errorf("httpclient: max_idle_conns_per_host must not be negative")
	}
	if c.Retry != nil && c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("httpclient: retry.max_attempts must not be negative")
	}
	return c.TLS.Validate()
}

// DefaultRetryConfig returns a retry config suitable for HTTP transports.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	return &cfg
}
