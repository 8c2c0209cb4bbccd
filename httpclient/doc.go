// Package httpclient builds the named *http.Client instances used to reach
// downstream APIs. Each name gets its own transport stack:
//
//	headers -> rate limit -> retry -> circuit breaker -> http.Transport
//
// Retry only applies to idempotent requests (or requests carrying an
// Idempotency-Key) whose body can be rewound.
//
//	factory, err := httpclient.NewFactory(map[string]httpclient.Config{
//		"graph": {Timeout: 10 * time.Second, Retry: httpclient.DefaultRetryConfig()},
//	})
//	client := factory.Client("graph")
package httpclient
