package authheader

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/auth/authctx"
	"github.com/kbukum/apikit/auth/jwt"
	"github.com/kbukum/apikit/downstream"
)

// Signed mints bearer assertions with a local JWT service. The application
// flow signs a token for ClientID; the user flow signs one for the principal
// of the call, falling back to the principal stored in ctx.
type Signed struct {
	svc      *jwt.Service[*jwt.Claims]
	clientID string
}

// NewSigned creates a Signed provider.
func NewSigned(svc *jwt.Service[*jwt.Claims], clientID string) (*Signed, error) {
	if svc == nil {
		return nil, errors.New("authheader: jwt service is required")
	}
	if clientID == "" {
		return nil, errors.New("authheader: client id is required")
	}
	return &Signed{svc: svc, clientID: clientID}, nil
}

var _ downstream.AuthorizationHeaderProvider = (*Signed)(nil)

func (s *Signed) CreateAuthorizationHeaderForApp(ctx context.Context, scopes string, opts *downstream.Options) (string, error) {
	claims := jwt.AppClaims(s.clientID, scopes)
	if opts != nil {
		claims.TenantID = opts.Token.Tenant
		if opts.Token.CorrelationID != "" {
			claims.ID = opts.Token.CorrelationID
		}
	}
	return s.sign(ctx, claims)
}

func (s *Signed) CreateAuthorizationHeaderForUser(ctx context.Context, scopes []string, opts *downstream.Options, user *auth.Principal) (string, error) {
	p := authctx.Resolve(ctx, user)
	if p == nil {
		return "", authctx.ErrNoPrincipal
	}
	claims := jwt.UserClaims(p, scopes)
	if opts != nil && opts.Token.Tenant != "" {
		claims.TenantID = opts.Token.Tenant
	}
	return s.sign(ctx, claims)
}

func (s *Signed) sign(ctx context.Context, claims *jwt.Claims) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token, err := s.svc.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("authheader: %w", err)
	}
	return "Bearer " + token, nil
}
