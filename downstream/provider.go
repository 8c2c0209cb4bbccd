package downstream

import (
	"context"
	"net/http"

	"github.com/kbukum/apikit/auth"
)

// AuthorizationHeaderProvider acquires the value of the Authorization header,
// e.g. "Bearer eyJ0...". Implementations own token caching.
type AuthorizationHeaderProvider interface {
	// CreateAuthorizationHeaderForApp returns a header for the application
	// itself. scopes is the space separated scope list.
	CreateAuthorizationHeaderForApp(ctx context.Context, scopes string, opts *Options) (string, error)
	// CreateAuthorizationHeaderForUser returns a header on behalf of user.
	// A nil user means the provider resolves the current user itself.
	CreateAuthorizationHeaderForUser(ctx context.Context, scopes []string, opts *Options, user *auth.Principal) (string, error)
}

// ClientFactory hands out named HTTP clients.
type ClientFactory interface {
	Client(name string) *http.Client
}

// ClientFactoryFunc adapts a function to ClientFactory.
type ClientFactoryFunc func(name string) *http.Client

// Client calls f(name).
func (f ClientFactoryFunc) Client(name string) *http.Client { return f(name) }
