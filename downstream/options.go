package downstream

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Options configures calls to one downstream API. Named Options are usually
// loaded from configuration and held in an OptionsStore; every call works on
// its own Clone.
type Options struct {
	// BaseURL is the root of the downstream API, e.g. "https://graph.example.com/v1.0".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	// RelativePath is appended to BaseURL.
	RelativePath string `yaml:"relative_path" mapstructure:"relative_path"`
	// HTTPMethod is the method used by Call and CallRaw. Defaults to GET.
	HTTPMethod string `yaml:"http_method" mapstructure:"http_method" validate:"omitempty,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	// Scopes are the authorization scopes requested for the call.
	Scopes []string `yaml:"scopes" mapstructure:"scopes"`
	// RequestAppToken selects the application-only flow when the call does
	// not pick a flow explicitly.
	RequestAppToken bool `yaml:"request_app_token" mapstructure:"request_app_token"`
	// ContentType is used for text input. Defaults to text/plain.
	ContentType string `yaml:"content_type" mapstructure:"content_type"`
	// Query holds extra query parameters added to every request.
	Query map[string]string `yaml:"query" mapstructure:"query"`
	// Token is passed through to the authorization-header provider.
	Token TokenOptions `yaml:"token" mapstructure:"token"`

	// Serializer replaces the built-in input encoding.
	Serializer func(value any) (*Content, error) `yaml:"-" mapstructure:"-"`
	// Deserializer replaces the built-in output decoding.
	Deserializer func(content *Content) (any, error) `yaml:"-" mapstructure:"-"`
	// CustomizeRequest runs on the finalized request right before transport.
	// It cannot change the Accept or Authorization headers.
	CustomizeRequest func(req *http.Request) `yaml:"-" mapstructure:"-"`
}

// TokenOptions are hints for token acquisition. They are opaque to this
// package and interpreted by the AuthorizationHeaderProvider.
type TokenOptions struct {
	// Tenant overrides the tenant the token is requested from.
	Tenant string `yaml:"tenant" mapstructure:"tenant"`
	// Claims is a claims challenge returned by a previous call.
	Claims string `yaml:"claims" mapstructure:"claims"`
	// CorrelationID ties token acquisition to the call in logs.
	CorrelationID string `yaml:"correlation_id" mapstructure:"correlation_id"`
	// ForceRefresh bypasses any token cache held by the provider.
	ForceRefresh bool `yaml:"force_refresh" mapstructure:"force_refresh"`
}

// Clone returns a deep copy of o. Function fields are shared.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}
	c := *o
	c.Scopes = slices.Clone(o.Scopes)
	c.Query = maps.Clone(o.Query)
	return &c
}

// Method returns the HTTP method, defaulting to GET.
func (o *Options) Method() string {
	if o == nil || o.HTTPMethod == "" {
		return http.MethodGet
	}
	return strings.ToUpper(o.HTTPMethod)
}

// JoinedScopes returns the scopes as a single space separated string.
func (o *Options) JoinedScopes() string {
	if o == nil {
		return ""
	}
	return strings.Join(o.Scopes, " ")
}

// RequestURL composes BaseURL, RelativePath and Query.
func (o *Options) RequestURL() (string, error) {
	if o == nil || o.BaseURL == "" {
		return "", fmt.Errorf("downstream: base url is required")
	}
	raw := o.BaseURL
	if o.RelativePath != "" {
		raw = strings.TrimRight(o.BaseURL, "/") + "/" + strings.TrimLeft(o.RelativePath, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("downstream: invalid url %q: %w", raw, err)
	}
	if len(o.Query) > 0 {
		q := u.Query()
		for k, v := range o.Query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
