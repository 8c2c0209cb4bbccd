package httpclient

import (
	"fmt"
	"maps"
	"net/http"
	"slices"

	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/resilience"
)

// DefaultName is the config key whose settings apply to unnamed clients.
const DefaultName = "default"

// Factory builds one *http.Client per configured name. Each client owns its
// own transport, so connection pools, breakers and limiters are not shared
// between downstream APIs.
type Factory struct {
	clients map[string]*http.Client
	log     *logger.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithLogger sets the logger used by retry transports.
func WithLogger(l *logger.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFactory builds the clients for configs. The DefaultName entry, when
// present, backs Client calls for unknown names.
func NewFactory(configs map[string]Config, opts ...FactoryOption) (*Factory, error) {
	f := &Factory{
		clients: make(map[string]*http.Client, len(configs)+1),
		log:     logger.Get("httpclient"),
	}
	for _, o := range opts {
		o(f)
	}

	if _, ok := configs[DefaultName]; !ok {
		configs = maps.Clone(configs)
		if configs == nil {
			configs = make(map[string]Config, 1)
		}
		configs[DefaultName] = Config{}
	}
	for _, name := range slices.Sorted(maps.Keys(configs)) {
		client, err := f.build(name, configs[name])
		if err != nil {
			return nil, fmt.Errorf("httpclient: client %q: %w", name, err)
		}
		f.clients[name] = client
		f.log.Debug("http client ready", logger.Fields(logger.FieldService, name))
	}
	return f, nil
}

// Client returns the client registered under name, or the default client.
func (f *Factory) Client(name string) *http.Client {
	if c, ok := f.clients[name]; ok {
		return c
	}
	return f.clients[DefaultName]
}

// Names returns the configured client names.
func (f *Factory) Names() []string {
	return slices.Sorted(maps.Keys(f.clients))
}

// Close releases idle connections of every client.
func (f *Factory) Close() {
	for _, c := range f.clients {
		c.CloseIdleConnections()
	}
}

func (f *Factory) build(name string, cfg Config) (*http.Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		base.TLSClientConfig = tlsCfg
	}

	var rt http.RoundTripper = base
	if cfg.CircuitBreaker != nil {
		cb := *cfg.CircuitBreaker
		if cb.Name == "" {
			cb.Name = name
		}
		rt = &BreakerTransport{Name: name, Next: rt, Breaker: resilience.NewCircuitBreaker(cb)}
	}
	if cfg.Retry != nil {
		rt = &RetryTransport{Name: name, Next: rt, Config: *cfg.Retry, Log: f.log}
	}
	if cfg.RateLimit != nil {
		rt = &LimitTransport{Next: rt, Limiter: resilience.NewRateLimiter(*cfg.RateLimit)}
	}
	if len(cfg.Headers) > 0 {
		rt = &HeaderTransport{Next: rt, Headers: maps.Clone(cfg.Headers)}
	}

	return &http.Client{Transport: rt, Timeout: cfg.Timeout}, nil
}
