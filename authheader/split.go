package authheader

import (
	"context"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/downstream"
)

// Split sends the application flow to App and the user flow to User, e.g.
// client credentials for app tokens and signed assertions for users.
type Split struct {
	App  downstream.AuthorizationHeaderProvider
	User downstream.AuthorizationHeaderProvider
}

var _ downstream.AuthorizationHeaderProvider = Split{}

func (s Split) CreateAuthorizationHeaderForApp(ctx context.Context, scopes string, opts *downstream.Options) (string, error) {
	return s.App.CreateAuthorizationHeaderForApp(ctx, scopes, opts)
}

func (s Split) CreateAuthorizationHeaderForUser(ctx context.Context, scopes []string, opts *downstream.Options, user *auth.Principal) (string, error) {
	return s.User.CreateAuthorizationHeaderForUser(ctx, scopes, opts, user)
}
