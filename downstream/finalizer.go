package downstream

import (
	"context"
	"io"
	"net/http"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/logger"
)

// Token flows reported in logs.
const (
	FlowApp  = "app"
	FlowUser = "user"
)

// Finalizer prepares outgoing requests: it attaches content, the Accept
// header and the Authorization header from the provider.
type Finalizer struct {
	provider AuthorizationHeaderProvider
	log      *logger.Logger
}

// FinalizerOption configures a Finalizer.
type FinalizerOption func(*Finalizer)

// WithFinalizerLogger sets the logger used for flow diagnostics.
func WithFinalizerLogger(l *logger.Logger) FinalizerOption {
	return func(f *Finalizer) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFinalizer creates a Finalizer that obtains headers from provider.
func NewFinalizer(provider AuthorizationHeaderProvider, opts ...FinalizerOption) *Finalizer {
	f := &Finalizer{provider: provider, log: logger.Nop()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Finalize mutates req in place. When appToken is true the application flow
// is used and user is ignored. Provider errors are returned unchanged and
// leave req without an Authorization header.
func (f *Finalizer) Finalize(ctx context.Context, req *http.Request, content *Content, opts *Options, appToken bool, user *auth.Principal) error {
	if content != nil {
		attachContent(req, content)
	}
	req.Header.Set("Accept", ContentTypeJSON)

	var scopes []string
	if opts != nil {
		scopes = opts.Scopes
	}

	var (
		header string
		err    error
		flow   = FlowUser
	)
	if appToken {
		flow = FlowApp
		header, err = f.provider.CreateAuthorizationHeaderForApp(ctx, opts.JoinedScopes(), opts)
	} else {
		header, err = f.provider.CreateAuthorizationHeaderForUser(ctx, scopes, opts, user)
	}
	log := f.log.WithContext(ctx)
	if err != nil {
		log.Debug("authorization header not acquired", logger.Fields(logger.FieldTokenFlow, flow, logger.FieldError, err.Error()))
		return err
	}
	req.Header.Set("Authorization", header)
	log.Debug("authorization header attached", logger.Fields(
		logger.FieldTokenFlow, flow,
		logger.FieldScopes, opts.JoinedScopes(),
	))

	if err := ctx.Err(); err != nil {
		return err
	}
	if opts != nil && opts.CustomizeRequest != nil {
		opts.CustomizeRequest(req)
		req.Header.Set("Accept", ContentTypeJSON)
		req.Header.Set("Authorization", header)
	}
	return nil
}

func attachContent(req *http.Request, content *Content) {
	for k, v := range content.Header() {
		if k == "Content-Length" {
			continue
		}
		req.Header[k] = append([]string(nil), v...)
	}
	req.ContentLength = content.ContentLength()
	if content.ContentLength() == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}

	r := content.Reader()
	if rc, ok := r.(io.ReadCloser); ok {
		req.Body = rc
	} else {
		req.Body = io.NopCloser(r)
	}
	if content.buffered() {
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(content.Reader()), nil
		}
	} else {
		req.GetBody = nil
	}
}
