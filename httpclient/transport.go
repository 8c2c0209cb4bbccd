package httpclient

import (
	"io"
	"net/http"
	"time"

	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/resilience"
)

// RetryTransport retries idempotent requests on transport failures and
// retryable statuses. Requests with a body are only retried when the body
// can be rewound through GetBody.
type RetryTransport struct {
	Name   string
	Next   http.RoundTripper
	Config resilience.RetryConfig
	Log    *logger.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	if !retryable(req) {
		resp, err := next.RoundTrip(req)
		if err != nil {
			return nil, classify(t.Name, err)
		}
		return resp, nil
	}

	cfg := t.Config
	cfg.ApplyDefaults()
	cfg.RetryIf = IsRetryable
	cfg.OnRetry = t.onRetry(req, t.Config.OnRetry)

	attempt := 0
	return resilience.Retry(req.Context(), cfg, func() (*http.Response, error) {
		attempt++
		r, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}
		resp, err := next.RoundTrip(r)
		if err != nil {
			return nil, classify(t.Name, err)
		}
		if attempt < cfg.MaxAttempts && RetryableStatus(resp.StatusCode) {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			_ = resp.Body.Close()
			return nil, &Error{Client: t.Name, Code: ErrCodeRetryableStatus, StatusCode: resp.StatusCode, Retryable: true}
		}
		return resp, nil
	})
}

func (t *RetryTransport) onRetry(req *http.Request, user func(int, error, time.Duration)) func(int, error, time.Duration) {
	return func(attempt int, err error, backoff time.Duration) {
		if t.Log != nil {
			t.Log.WithContext(req.Context()).Warn("retrying downstream request", logger.Fields(
				logger.FieldService, t.Name,
				logger.FieldMethod, req.Method,
				"attempt", attempt,
				"backoff_ms", backoff.Milliseconds(),
				logger.FieldError, err.Error(),
			))
		}
		if user != nil {
			user(attempt, err, backoff)
		}
	}
}

func retryable(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
	default:
		if req.Header.Get("Idempotency-Key") == "" {
			return false
		}
	}
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns req for the first attempt and a copy with a fresh body for
// later ones.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

// BreakerTransport rejects requests while the circuit is open. Transport
// errors and 5xx responses count as failures.
type BreakerTransport struct {
	Name    string
	Next    http.RoundTripper
	Breaker *resilience.CircuitBreaker
}

// RoundTrip implements http.RoundTripper.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Breaker.Allow(); err != nil {
		closeBody(req)
		return nil, &Error{Client: t.Name, Code: ErrCodeCircuitOpen, Err: err}
	}
	resp, err := t.Next.RoundTrip(req)
	t.Breaker.Record(err == nil && resp.StatusCode < http.StatusInternalServerError)
	return resp, err
}

// LimitTransport waits for the rate limiter before each request.
type LimitTransport struct {
	Next    http.RoundTripper
	Limiter *resilience.RateLimiter
}

// RoundTrip implements http.RoundTripper.
func (t *LimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		closeBody(req)
		return nil, err
	}
	return t.Next.RoundTrip(req)
}

// HeaderTransport adds default headers the request does not already carry.
type HeaderTransport struct {
	Next    http.RoundTripper
	Headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.Headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.Next.RoundTrip(r)
}

// closeBody honours the RoundTripper contract of closing the body on error.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
