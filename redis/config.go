package redis

import (
	"fmt"
	"time"

	"github.com/kbukum/apikit/encryption"
)

// Config holds the shared token cache connection.
type Config struct {
	// Enabled turns the shared token cache on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Addr is the Redis server address (host:port).
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`

	// KeyPrefix namespaces the cached tokens. Defaults to "apikit:tokens".
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`

	PoolSize     int `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	MaxRetries   int `yaml:"max_retries" mapstructure:"max_retries"`

	// EncryptionKey, when set, seals cached values at rest. All replicas
	// sharing the cache need the same key.
	EncryptionKey       string `yaml:"encryption_key" mapstructure:"encryption_key"`
	EncryptionAlgorithm string `yaml:"encryption_algorithm" mapstructure:"encryption_algorithm"`

	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "apikit:tokens"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// Validate checks an enabled config.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis: addr is required")
	}
	if _, err := encryption.ParseAlgorithm(c.EncryptionAlgorithm); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("redis: timeouts must be non-negative")
	}
	return nil
}

// Sealer builds the at-rest sealer, or returns nil when no key is set.
func (c *Config) Sealer() (encryption.Sealer, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	alg, err := encryption.ParseAlgorithm(c.EncryptionAlgorithm)
	if err != nil {
		return nil, err
	}
	return encryption.New(c.EncryptionKey, alg)
}
