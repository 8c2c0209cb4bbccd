// Package server runs a Gin based gateway that forwards inbound requests to
// configured downstream APIs, served over HTTP/1.1 and h2c on one port.
//
// Inbound bearer tokens are parsed by middleware.Principal and the resulting
// principal is carried in the request context. The gateway then calls the
// downstream API with the user flow on behalf of that principal:
//
//	GET /api/orders/v1/items?top=5  ->  orders BaseURL + /v1/items?top=5
//
// # Middleware
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request and correlation id propagation
//   - RequestLogger: request logging with duration tracking
//   - Principal: bearer token validation (auth/jwt)
package server
