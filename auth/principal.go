// Package auth holds the identity types shared by the downstream caller and
// the authorization-header providers.
//
// Subpackages:
//
//   - auth/authctx — request-scoped propagation of the current Principal
//   - auth/jwt     — signing and parsing of JWT assertions (golang-jwt)
package auth

import "strings"

// Principal is an authenticated end user on whose behalf a downstream API is
// called. Tokens for the user flow are scoped to it.
type Principal struct {
	// Subject is the stable identifier of the user (the "sub" or "oid" claim).
	Subject string `json:"sub"`
	// Name is a display name, informational only.
	Name string `json:"name,omitempty"`
	// TenantID scopes the principal to a directory or organisation.
	TenantID string `json:"tid,omitempty"`
	// Scopes lists the scopes granted in the inbound token, when known.
	Scopes []string `json:"scp,omitempty"`
	// Claims carries any additional claims from the inbound token.
	Claims map[string]any `json:"-"`
}

// ID returns the principal identifier qualified by tenant when one is set.
func (p *Principal) ID() string {
	if p == nil {
		return ""
	}
	if p.TenantID == "" {
		return p.Subject
	}
	return p.Subject + "@" + p.TenantID
}

// HasScope reports whether the principal was granted scope.
func (p *Principal) HasScope(scope string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Scopes {
		if strings.EqualFold(s, scope) {
			return true
		}
	}
	return false
}

// Claim returns a named claim and whether it was present.
func (p *Principal) Claim(name string) (any, bool) {
	if p == nil || p.Claims == nil {
		return nil, false
	}
	v, ok := p.Claims[name]
	return v, ok
}
