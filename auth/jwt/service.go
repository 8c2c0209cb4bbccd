// Package jwt signs and parses the JWT assertions used as bearer tokens
// between apikit services.
//
// The service is parameterized by a claims type T, which must implement
// jwt.Claims. Claims is the default type used by the signed header provider
// and the principal middleware:
//
//	svc, err := jwt.NewService(cfg, func() *jwt.Claims { return &jwt.Claims{} })
//	token, err := svc.Sign(jwt.UserClaims(principal, []string{"api://orders/.default"}))
//	claims, err := svc.Parse(token)
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/apikit/auth"
)

// Token types carried in the "idtyp" claim.
const (
	TokenTypeApp  = "app"
	TokenTypeUser = "user"
)

// Claims are the claims carried by apikit assertions.
type Claims struct {
	gojwt.RegisteredClaims
	// Scope is the space separated list of granted scopes.
	Scope string `json:"scp,omitempty"`
	// TokenType is TokenTypeApp or TokenTypeUser.
	TokenType string `json:"idtyp,omitempty"`
	// TenantID is the tenant of the user, when known.
	TenantID string `json:"tid,omitempty"`
	// Name is the display name of the user, when known.
	Name string `json:"name,omitempty"`
}

// AppClaims builds claims for an application-only token.
func AppClaims(clientID, scopes string) *Claims {
	return &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: clientID},
		Scope:            scopes,
		TokenType:        TokenTypeApp,
	}
}

// UserClaims builds claims for a token delegated by p.
func UserClaims(p *auth.Principal, scopes []string) *Claims {
	return &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: p.Subject},
		Scope:            strings.Join(scopes, " "),
		TokenType:        TokenTypeUser,
		TenantID:         p.TenantID,
		Name:             p.Name,
	}
}

// Principal converts user claims into a Principal.
func (c *Claims) Principal() *auth.Principal {
	p := &auth.Principal{
		Subject:  c.Subject,
		Name:     c.Name,
		TenantID: c.TenantID,
		Claims:   map[string]any{"idtyp": c.TokenType},
	}
	if c.Scope != "" {
		p.Scopes = strings.Fields(c.Scope)
	}
	return p
}

// SetDefaults fills the registered time, issuer, audience and id claims.
func (c *Claims) SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string) {
	if c.IssuedAt == nil {
		c.IssuedAt = gojwt.NewNumericDate(now)
	}
	if c.NotBefore == nil {
		c.NotBefore = gojwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil {
		c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	if c.Issuer == "" {
		c.Issuer = issuer
	}
	if len(c.Audience) == 0 && len(audience) > 0 {
		c.Audience = gojwt.ClaimStrings(audience)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
}

// Service provides JWT signing and parsing for claims type T.
type Service[T gojwt.Claims] struct {
	cfg      Config
	newEmpty func() T
	now      func() time.Time
}

// NewService creates a new JWT service.
// The newEmpty function returns a zero-value instance of T for parsing.
func NewService[T gojwt.Claims](cfg *Config, newEmpty func() T) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service[T]{cfg: *cfg, newEmpty: newEmpty, now: time.Now}, nil
}

// Sign fills standard claims when T supports it and returns the signed token.
func (s *Service[T]) Sign(claims T) (string, error) {
	if setter, ok := any(claims).(interface {
		SetDefaults(time.Time, time.Duration, string, []string)
	}); ok {
		setter.SetDefaults(s.now(), s.cfg.TTL, s.cfg.Issuer, s.cfg.Audience)
	}
	token := gojwt.NewWithClaims(s.cfg.signingMethod(), claims)
	signed, err := token.SignedString(s.cfg.signKey())
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Parse validates and parses a JWT token string into claims of type T.
// It verifies the signature, expiry, and optionally issuer/audience.
func (s *Service[T]) Parse(tokenString string) (T, error) {
	claims := s.newEmpty()
	token, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc, s.parserOptions()...)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("jwt: parse token: %w", err)
	}
	parsed, ok := token.Claims.(T)
	if !ok || !token.Valid {
		var zero T
		return zero, errors.New("jwt: invalid token")
	}
	return parsed, nil
}

// keyFunc is the jwt.Keyfunc used during token parsing.
func (s *Service[T]) keyFunc(token *gojwt.Token) (any, error) {
	if token.Method.Alg() != s.cfg.signingMethod().Alg() {
		return nil, fmt.Errorf("jwt: unexpected signing method: %s", token.Method.Alg())
	}
	return s.cfg.verifyKey(), nil
}

// parserOptions returns jwt.ParserOption based on config.
func (s *Service[T]) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.cfg.signingMethod().Alg()}),
		gojwt.WithLeeway(s.cfg.Leeway),
		gojwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	if len(s.cfg.Audience) > 0 {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience[0]))
	}
	return opts
}
