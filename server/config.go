package server

import (
	"fmt"
	"strings"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port"`
	ReadTimeout  int    `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	// GatewayPrefix is the route prefix of the downstream gateway.
	GatewayPrefix string `yaml:"gateway_prefix" mapstructure:"gateway_prefix"`
	// AllowAnonymous lets gateway requests without a bearer token through;
	// they are then sent with the application flow.
	AllowAnonymous bool `yaml:"allow_anonymous" mapstructure:"allow_anonymous"`
	// Access grants gateway permissions ("service:read|write", wildcards
	// allowed) to inbound token scopes and to the pseudo subjects
	// "authenticated" and "anonymous". Empty means no checks.
	Access map[string][]string `yaml:"access" mapstructure:"access"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.GatewayPrefix == "" {
		c.GatewayPrefix = "/api"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.GatewayPrefix != "" && !strings.HasPrefix(c.GatewayPrefix, "/") {
		return fmt.Errorf("server.gateway_prefix must start with '/' (got: %q)", c.GatewayPrefix)
	}
	for subject, patterns := range c.Access {
		if len(patterns) == 0 {
			return fmt.Errorf("server.access.%s must grant at least one permission", subject)
		}
	}
	return nil
}
