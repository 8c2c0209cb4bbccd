package authz

import (
	"net/http"
	"strings"

	"github.com/kbukum/apikit/auth"
)

// Pseudo subjects.
const (
	SubjectAnonymous     = "anonymous"
	SubjectAuthenticated = "authenticated"
)

// Permission actions.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// Checker reports whether subject holds permission.
type Checker interface {
	HasPermission(subject, permission string) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(subject, permission string) bool

// HasPermission calls f.
func (f CheckerFunc) HasPermission(subject, permission string) bool {
	return f(subject, permission)
}

// MapChecker is a static Checker. Subjects and patterns are compared case
// insensitively since config keys arrive lower-cased.
type MapChecker struct {
	grants map[string][]string
}

// NewMapChecker copies grants into a MapChecker.
func NewMapChecker(grants map[string][]string) *MapChecker {
	m := make(map[string][]string, len(grants))
	for subject, patterns := range grants {
		key := strings.ToLower(subject)
		for _, p := range patterns {
			m[key] = append(m[key], strings.ToLower(p))
		}
	}
	return &MapChecker{grants: m}
}

// HasPermission reports whether any pattern granted to subject matches.
func (c *MapChecker) HasPermission(subject, permission string) bool {
	return MatchAny(c.grants[strings.ToLower(subject)], strings.ToLower(permission))
}

// Allowed reports whether any of subjects holds permission.
func Allowed(c Checker, subjects []string, permission string) bool {
	for _, s := range subjects {
		if c.HasPermission(s, permission) {
			return true
		}
	}
	return false
}

// Permission builds the permission a gateway request needs.
func Permission(service, method string) string {
	action := ActionWrite
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		action = ActionRead
	}
	return strings.ToLower(service) + ":" + action
}

// Subjects lists the subjects p acts as. A nil principal is anonymous.
func Subjects(p *auth.Principal) []string {
	if p == nil {
		return []string{SubjectAnonymous}
	}
	return append([]string{SubjectAuthenticated}, p.Scopes...)
}
