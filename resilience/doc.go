// Package resilience provides the fault-tolerance primitives used by the
// httpclient transports: retry with exponential backoff, a circuit breaker
// and a token bucket rate limiter.
//
//	resp, err := resilience.Retry(ctx, cfg, func() (*http.Response, error) {
//		return next.RoundTrip(req)
//	})
package resilience
