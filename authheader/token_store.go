package authheader

import (
	"context"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbukum/apikit/logger"
)

// sharedSkew shortens the lifetime of shared tokens so that no replica
// reads a token that is about to expire.
const sharedSkew = 30 * time.Second

// TokenStore shares application tokens between processes, e.g. the
// replicas of a gateway. redis.TypedStore[oauth2.Token] implements it.
// Load returns (nil, nil) for a missing key.
type TokenStore interface {
	Load(ctx context.Context, key string) (*oauth2.Token, error)
	Save(ctx context.Context, key string, tok *oauth2.Token, ttl time.Duration) error
}

// WithTokenStore consults store before the token endpoint and publishes
// every token acquired without a claims challenge.
func WithTokenStore(store TokenStore) ClientCredentialsOption {
	return func(p *ClientCredentials) { p.tokens = store }
}

// sharedKey joins client id, tenant and scopes with ":". Each part is
// query-escaped so a ":" inside one cannot shift the others.
func (p *ClientCredentials) sharedKey(tenant, scopes string) string {
	parts := []string{p.cfg.ClientID, tenant, scopes}
	for i, part := range parts {
		parts[i] = url.QueryEscape(part)
	}
	return strings.Join(parts, ":")
}

// loadShared returns a valid shared token or nil. Store failures only
// cost a trip to the token endpoint.
func (p *ClientCredentials) loadShared(ctx context.Context, key string) *oauth2.Token {
	if p.tokens == nil {
		return nil
	}
	tok, err := p.tokens.Load(ctx, key)
	if err != nil {
		p.log.WithContext(ctx).Warn("token store load failed", logger.Fields(logger.FieldError, err.Error()))
		return nil
	}
	if !tok.Valid() {
		return nil
	}
	return tok
}

// saveShared publishes tok for sharedSkew less than its lifetime. Tokens
// without an expiry stay local to this process.
func (p *ClientCredentials) saveShared(ctx context.Context, key string, tok *oauth2.Token) {
	if p.tokens == nil || tok.Expiry.IsZero() {
		return
	}
	ttl := time.Until(tok.Expiry) - sharedSkew
	if ttl <= 0 {
		return
	}
	if err := p.tokens.Save(ctx, key, tok, ttl); err != nil {
		p.log.WithContext(ctx).Warn("token store save failed", logger.Fields(logger.FieldError, err.Error()))
	}
}
