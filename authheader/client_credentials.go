package authheader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/downstream"
	"github.com/kbukum/apikit/logger"
)

// TenantPlaceholder is replaced in TokenURL by the tenant of the call.
const TenantPlaceholder = "{tenant}"

// ErrUserFlowUnsupported is returned by providers that only hold
// application credentials.
var ErrUserFlowUnsupported = errors.New("authheader: user flow not supported by client credentials")

// ClientCredentialsConfig configures the OAuth2 client credentials grant.
type ClientCredentialsConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret" validate:"required"`
	// TokenURL may contain {tenant}, e.g.
	// "https://login.example.com/{tenant}/oauth2/v2.0/token".
	TokenURL string `yaml:"token_url" mapstructure:"token_url" validate:"required"`
	// Tenant is used when the call does not carry a tenant.
	Tenant string `yaml:"tenant" mapstructure:"tenant"`
	// EndpointParams are sent with every token request.
	EndpointParams map[string]string `yaml:"endpoint_params" mapstructure:"endpoint_params"`
}

// Validate checks required fields.
func (c *ClientCredentialsConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("authheader: client_id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("authheader: client_secret is required")
	}
	if c.TokenURL == "" {
		return fmt.Errorf("authheader: token_url is required")
	}
	return nil
}

// ClientCredentials is an AuthorizationHeaderProvider for the application
// flow. Token sources are cached per tenant and scope set and refresh
// themselves shortly before expiry.
type ClientCredentials struct {
	cfg    ClientCredentialsConfig
	client *http.Client
	log    *logger.Logger

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
	tokens  TokenStore
}

// ClientCredentialsOption configures a ClientCredentials provider.
type ClientCredentialsOption func(*ClientCredentials)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) ClientCredentialsOption {
	return func(p *ClientCredentials) { p.client = c }
}

// WithLogger sets the provider logger.
func WithLogger(l *logger.Logger) ClientCredentialsOption {
	return func(p *ClientCredentials) {
		if l != nil {
			p.log = l
		}
	}
}

// NewClientCredentials creates a client credentials provider.
func NewClientCredentials(cfg ClientCredentialsConfig, opts ...ClientCredentialsOption) (*ClientCredentials, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &ClientCredentials{
		cfg:     cfg,
		log:     logger.Get("authheader"),
		sources: make(map[string]oauth2.TokenSource),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

var _ downstream.AuthorizationHeaderProvider = (*ClientCredentials)(nil)

// CreateAuthorizationHeaderForApp returns "<type> <access token>" for scopes.
// A claims challenge or ForceRefresh bypasses the caches; the fresh token
// replaces the cached one unless it answers a claims challenge.
func (p *ClientCredentials) CreateAuthorizationHeaderForApp(ctx context.Context, scopes string, opts *downstream.Options) (string, error) {
	var tokenOpts downstream.TokenOptions
	if opts != nil {
		tokenOpts = opts.Token
	}
	tenant := tokenOpts.Tenant
	if tenant == "" {
		tenant = p.cfg.Tenant
	}

	cc, err := p.oauthConfig(tenant, strings.Fields(scopes), tokenOpts.Claims)
	if err != nil {
		return "", err
	}
	key := tenant + "\x00" + scopes
	shared := p.sharedKey(tenant, scopes)
	bypass := tokenOpts.ForceRefresh || tokenOpts.Claims != ""

	var tok *oauth2.Token
	if !bypass {
		tok = p.loadShared(ctx, shared)
	}
	if tok == nil {
		if bypass {
			tok, err = cc.Token(p.tokenContext(ctx))
			if err == nil && tokenOpts.Claims == "" {
				p.store(key, oauth2.ReuseTokenSource(tok, cc.TokenSource(p.tokenContext(context.Background()))))
			}
		} else {
			tok, err = p.source(key, cc).Token()
		}
		if err != nil {
			p.log.WithContext(ctx).Debug("token acquisition failed", logger.Fields(
				"tenant", tenant,
				logger.FieldScopes, scopes,
				logger.FieldError, err.Error(),
			))
			return "", fmt.Errorf("authheader: acquire app token: %w", err)
		}
		if tokenOpts.Claims == "" {
			p.saveShared(ctx, shared, tok)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return tok.Type() + " " + tok.AccessToken, nil
}

// CreateAuthorizationHeaderForUser always fails: client credentials carry no
// user identity.
func (p *ClientCredentials) CreateAuthorizationHeaderForUser(context.Context, []string, *downstream.Options, *auth.Principal) (string, error) {
	return "", ErrUserFlowUnsupported
}

// Forget drops every cached token source.
func (p *ClientCredentials) Forget() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.sources)
}

func (p *ClientCredentials) oauthConfig(tenant string, scopes []string, claims string) (*clientcredentials.Config, error) {
	tokenURL := p.cfg.TokenURL
	if strings.Contains(tokenURL, TenantPlaceholder) {
		if tenant == "" {
			return nil, fmt.Errorf("authheader: token url %q needs a tenant", tokenURL)
		}
		tokenURL = strings.ReplaceAll(tokenURL, TenantPlaceholder, url.PathEscape(tenant))
	}

	params := url.Values{}
	for k, v := range p.cfg.EndpointParams {
		params.Set(k, v)
	}
	if claims != "" {
		params.Set("claims", claims)
	}

	return &clientcredentials.Config{
		ClientID:       p.cfg.ClientID,
		ClientSecret:   p.cfg.ClientSecret,
		TokenURL:       tokenURL,
		Scopes:         scopes,
		EndpointParams: params,
	}, nil
}

// source returns the cached token source for key, creating it on first use.
// Sources outlive the call, so they are bound to a background context.
func (p *ClientCredentials) source(key string, cc *clientcredentials.Config) oauth2.TokenSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ts, ok := p.sources[key]; ok {
		return ts
	}
	ts := cc.TokenSource(p.tokenContext(context.Background()))
	p.sources[key] = ts
	return ts
}

func (p *ClientCredentials) store(key string, ts oauth2.TokenSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[key] = ts
}

func (p *ClientCredentials) tokenContext(ctx context.Context) context.Context {
	if p.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}
