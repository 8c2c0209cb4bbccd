package downstream

import (
	"context"
	"net/http"

	"github.com/kbukum/apikit/auth"
)

// CallOption adjusts a single call.
type CallOption func(*callConfig)

type callConfig struct {
	appToken   *bool
	user       *auth.Principal
	customize  []func(*Options)
	descriptor any
}

func newCallConfig(opts []CallOption) *callConfig {
	cfg := &callConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// ForApp uses the application-only token flow.
func ForApp() CallOption {
	return func(c *callConfig) {
		app := true
		c.appToken = &app
	}
}

// ForUser uses the user token flow on behalf of p. A nil p lets the provider
// resolve the user from the context.
func ForUser(p *auth.Principal) CallOption {
	return func(c *callConfig) {
		app := false
		c.appToken = &app
		c.user = p
	}
}

// WithOptions edits the per-call copy of the named options.
func WithOptions(fn func(*Options)) CallOption {
	return func(c *callConfig) {
		if fn != nil {
			c.customize = append(c.customize, fn)
		}
	}
}

// WithDescriptor decodes the response through d. It only applies to calls
// whose result type is T.
func WithDescriptor[T any](d *Descriptor[T]) CallOption {
	return func(c *callConfig) { c.descriptor = d }
}

func withMethod(method string) CallOption {
	return WithOptions(func(o *Options) { o.HTTPMethod = method })
}

// Call sends in to service and decodes the response into T. Use *Content as
// T to receive the raw response content; its body must then be closed by the
// caller.
func Call[T any](ctx context.Context, a *API, service string, in Input, opts ...CallOption) (T, error) {
	var zero T
	cfg := newCallConfig(opts)
	resp, o, finish, err := a.do(ctx, service, in, cfg)
	if err != nil {
		return zero, err
	}
	desc, _ := cfg.descriptor.(*Descriptor[T])
	out, err := DeserializeOutput(resp, o, desc)
	finish(resp.StatusCode, err)
	return out, err
}

// Get calls service with GET and no body.
func Get[T any](ctx context.Context, a *API, service string, opts ...CallOption) (T, error) {
	return Call[T](ctx, a, service, None, append(opts[:len(opts):len(opts)], withMethod(http.MethodGet))...)
}

// Post calls service with POST.
func Post[T any](ctx context.Context, a *API, service string, in Input, opts ...CallOption) (T, error) {
	return Call[T](ctx, a, service, in, append(opts[:len(opts):len(opts)], withMethod(http.MethodPost))...)
}

// Put calls service with PUT.
func Put[T any](ctx context.Context, a *API, service string, in Input, opts ...CallOption) (T, error) {
	return Call[T](ctx, a, service, in, append(opts[:len(opts):len(opts)], withMethod(http.MethodPut))...)
}

// Patch calls service with PATCH.
func Patch[T any](ctx context.Context, a *API, service string, in Input, opts ...CallOption) (T, error) {
	return Call[T](ctx, a, service, in, append(opts[:len(opts):len(opts)], withMethod(http.MethodPatch))...)
}

// Delete calls service with DELETE and no body.
func Delete[T any](ctx context.Context, a *API, service string, opts ...CallOption) (T, error) {
	return Call[T](ctx, a, service, None, append(opts[:len(opts):len(opts)], withMethod(http.MethodDelete))...)
}
