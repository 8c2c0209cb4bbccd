package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/apikit/logger"
)

// ErrDisabled is returned by New for a disabled config.
var ErrDisabled = errors.New("redis: disabled")

// Client is the connection pool behind the token cache.
type Client struct {
	rdb       *goredis.Client
	log       *logger.Logger
	cfg       Config
	closeOnce sync.Once
	closeErr  error
}

// New creates a client. It does not dial; use Ping to check the server.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if log == nil {
		log = logger.Nop()
	}

	c := &Client{cfg: cfg, log: log.WithFields(logger.Fields("addr", cfg.Addr, "db", cfg.DB))}
	c.rdb = goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	c.log.Debug("token cache client created", logger.Fields("pool_size", cfg.PoolSize, "sealed", cfg.EncryptionKey != ""))
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping %s: %w", c.cfg.Addr, err)
	}
	return nil
}

// Close releases the pool. Later calls return the first result.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closeErr = c.rdb.Close()
		c.log.Debug("token cache client closed")
	})
	return c.closeErr
}
