package bootstrap

import (
	"time"

	"github.com/kbukum/apikit/config"
	"github.com/kbukum/apikit/downstream"
	"github.com/kbukum/apikit/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	loader          *config.Loader
	provider        downstream.AuthorizationHeaderProvider
	gracefulTimeout *time.Duration
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithLoader enables live reload of the downstream options from the
// loader's config file.
func WithLoader(l *config.Loader) Option {
	return func(o *appOptions) {
		o.loader = l
	}
}

// WithProvider replaces the provider built from the credentials and jwt
// sections.
func WithProvider(p downstream.AuthorizationHeaderProvider) Option {
	return func(o *appOptions) {
		o.provider = p
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}
