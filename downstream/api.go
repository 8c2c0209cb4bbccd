package downstream

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/observability"
)

// API calls named downstream APIs. Options are resolved by name on every
// call, the request is finalized with the provider's Authorization header
// and sent through the client registered under the same name.
type API struct {
	provider  AuthorizationHeaderProvider
	clients   ClientFactory
	options   OptionsSource
	finalizer *Finalizer
	log       *logger.Logger
	metrics   *observability.Metrics
	newID     func() string
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger. Defaults to the "downstream" named logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetrics records call metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *API) { a.metrics = m }
}

// New creates an API. clients may be nil, in which case http.DefaultClient
// is used for every service.
func New(provider AuthorizationHeaderProvider, clients ClientFactory, options OptionsSource, opts ...Option) *API {
	a := &API{
		provider: provider,
		clients:  clients,
		options:  options,
		log:      logger.Get("downstream"),
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(a)
	}
	a.finalizer = NewFinalizer(provider, WithFinalizerLogger(a.log))
	return a
}

// CallRaw sends in to service and returns the raw response. Non-2xx
// responses are returned as is; the caller must close the body.
func (a *API) CallRaw(ctx context.Context, service string, in Input, opts ...CallOption) (*http.Response, error) {
	resp, _, finish, err := a.do(ctx, service, in, newCallConfig(opts))
	if err != nil {
		return nil, err
	}
	finish(resp.StatusCode, nil)
	return resp, nil
}

type finishFunc func(statusCode int, err error)

// do resolves options, finalizes the request and sends it. On success the
// caller must invoke finish once the response has been handled.
func (a *API) do(ctx context.Context, service string, in Input, cfg *callConfig) (*http.Response, *Options, finishFunc, error) {
	opts, err := a.options.Get(service)
	if err != nil {
		a.log.WithContext(ctx).Error("downstream options not found", logger.Fields(logger.FieldService, service))
		return nil, nil, nil, err
	}
	for _, fn := range cfg.customize {
		fn(opts)
	}

	appToken := opts.RequestAppToken
	if cfg.appToken != nil {
		appToken = *cfg.appToken
	}
	flow := FlowUser
	if appToken {
		flow = FlowApp
	}

	if opts.Token.CorrelationID == "" {
		opts.Token.CorrelationID = logger.CorrelationIDFromContext(ctx)
	}
	if opts.Token.CorrelationID == "" {
		opts.Token.CorrelationID = a.newID()
	}
	ctx = logger.ContextWithCorrelationID(ctx, opts.Token.CorrelationID)
	log := a.log.WithContext(ctx)

	url, err := opts.RequestURL()
	if err != nil {
		log.Error("downstream url invalid", logger.Fields(logger.FieldService, service, logger.FieldError, err.Error()))
		return nil, nil, nil, err
	}
	method := opts.Method()

	cc := observability.NewCallContext(service, method, url, flow, opts.Token.CorrelationID, a.metrics)
	ctx = cc.Start(ctx)
	finish := func(statusCode int, err error) {
		cc.End(ctx, statusCode, err)
		fields := logger.Fields(
			logger.FieldService, service,
			logger.FieldMethod, method,
			logger.FieldStatus, statusCode,
		)
		fields = logger.MergeWithDuration(fields, cc.Duration())
		if err != nil {
			log.WithError(err).Error("downstream call failed", fields)
			return
		}
		log.Debug("downstream call completed", fields)
	}
	fail := func(err error) (*http.Response, *Options, finishFunc, error) {
		finish(0, err)
		return nil, nil, nil, err
	}

	content, err := SerializeInput(in, opts)
	if err != nil {
		return fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fail(err)
	}
	if err := a.finalizer.Finalize(ctx, req, content, opts, appToken, cfg.user); err != nil {
		if a.metrics != nil {
			a.metrics.RecordTokenFailure(ctx, service, flow)
		}
		return fail(err)
	}
	observability.InjectHeaders(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := a.client(service).Do(req)
	if err != nil {
		return fail(err)
	}
	return resp, opts, finish, nil
}

func (a *API) client(service string) *http.Client {
	if a.clients != nil {
		if c := a.clients.Client(service); c != nil {
			return c
		}
	}
	return http.DefaultClient
}
