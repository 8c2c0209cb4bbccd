package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/apikit/auth/jwt"
	"github.com/kbukum/apikit/authheader"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/observability"
	"github.com/kbukum/apikit/redis"
	"github.com/kbukum/apikit/server"
	"github.com/kbukum/apikit/version"
)

var validEnvironments = []string{"development", "staging", "production"}

// ServiceConfig contains the fields every apikit process needs.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults applies default values to the base configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "apikit"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Version == "" {
		c.Version = version.Short()
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(validEnvironments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", validEnvironments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// Config is the configuration of an apikit process: the gateway server,
// the authorization-header providers and the downstream APIs it calls.
//
//	name: orders-gateway
//	credentials:
//	  client_id: ${CLIENT_ID}
//	  client_secret: ${CLIENT_SECRET}
//	  token_url: https://login.example.com/{tenant}/oauth2/v2.0/token
//	downstream:
//	  apis:
//	    orders:
//	      base_url: https://orders.example.com/v1
//	      scopes: [api://orders/.default]
//	  clients:
//	    orders:
//	      timeout: 10s
//	      retry: {max_attempts: 3}
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
	// TracingEnabled and MetricsEnabled turn on the OTLP exporters.
	TracingEnabled bool `yaml:"tracing_enabled" mapstructure:"tracing_enabled"`
	MetricsEnabled bool `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`

	Server server.Config `yaml:"server" mapstructure:"server"`

	// JWT signs assertions for the signed provider and verifies inbound
	// tokens at the gateway.
	JWT *jwt.Config `yaml:"jwt" mapstructure:"jwt"`
	// Credentials enables the OAuth2 client credentials provider.
	Credentials *authheader.ClientCredentialsConfig `yaml:"credentials" mapstructure:"credentials"`
	// TokenCache shares client credentials tokens through Redis.
	TokenCache redis.Config `yaml:"token_cache" mapstructure:"token_cache"`

	Downstream DownstreamConfig `yaml:"downstream" mapstructure:"downstream"`
}

// ApplyDefaults fills defaults in every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	tracing := observability.DefaultTracerConfig(c.Name)
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = tracing.ServiceName
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = tracing.Endpoint
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = tracing.SampleRate
	}
	metrics := observability.DefaultMeterConfig(c.Name)
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = metrics.ServiceName
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = metrics.Endpoint
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = metrics.Interval
	}
	c.Tracing.Environment = c.Environment
	c.Metrics.Environment = c.Environment
	if c.Version != "" {
		c.Tracing.ServiceVersion = c.Version
		c.Metrics.ServiceVersion = c.Version
	}
	c.Server.ApplyDefaults()
	if c.JWT != nil {
		c.JWT.ApplyDefaults()
	}
	c.TokenCache.ApplyDefaults()
	c.Downstream.ApplyDefaults()
}

// Validate checks every section and reports the first failing one.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if c.JWT != nil {
		if err := c.JWT.Validate(); err != nil {
			return fmt.Errorf("config.jwt: %w", err)
		}
	}
	if c.Credentials != nil {
		if err := c.Credentials.Validate(); err != nil {
			return fmt.Errorf("config.credentials: %w", err)
		}
	}
	if c.JWT == nil && c.Credentials == nil {
		return fmt.Errorf("config: either jwt or credentials must be configured")
	}
	if err := c.TokenCache.Validate(); err != nil {
		return fmt.Errorf("config.token_cache: %w", err)
	}
	return c.Downstream.Validate()
}
