// Package authctx provides type-safe context propagation for the
// authenticated principal.
//
// Usage:
//
//	// Store the principal (typically in middleware)
//	ctx = authctx.WithPrincipal(ctx, principal)
//
//	// Retrieve it later (in handlers or header providers)
//	p, ok := authctx.Principal(ctx)
package authctx

import (
	"context"
	"errors"

	"github.com/kbukum/apikit/auth"
)

// contextKey is an unexported type to prevent collisions with other packages.
type contextKey struct{}

// principalKey is the single key used to store the principal in context.
var principalKey = contextKey{}

// ErrNoPrincipal is returned when no principal is stored in the context.
var ErrNoPrincipal = errors.New("authctx: no principal in context")

// WithPrincipal stores the principal in the context. A nil principal leaves
// ctx unchanged.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, principalKey, p)
}

// Principal retrieves the principal from the context.
func Principal(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	return p, ok && p != nil
}

// PrincipalOrError retrieves the principal or returns ErrNoPrincipal.
func PrincipalOrError(ctx context.Context) (*auth.Principal, error) {
	p, ok := Principal(ctx)
	if !ok {
		return nil, ErrNoPrincipal
	}
	return p, nil
}

// Resolve returns explicit when it is non-nil and otherwise falls back to the
// principal stored in ctx. It returns nil when neither is available.
func Resolve(ctx context.Context, explicit *auth.Principal) *auth.Principal {
	if explicit != nil {
		return explicit
	}
	p, _ := Principal(ctx)
	return p
}
