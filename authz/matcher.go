package authz

import "strings"

// MatchPattern matches a "service:action" pattern against a permission.
// Either half may be "*", and "*" alone matches everything. Patterns
// without a separator only match permissions without one.
func MatchPattern(pattern, permission string) bool {
	if pattern == "*" || pattern == permission {
		return true
	}
	pService, pAction, pOK := strings.Cut(pattern, ":")
	service, action, ok := strings.Cut(permission, ":")
	if !pOK || !ok {
		return false
	}
	return wildcard(pService, service) && wildcard(pAction, action)
}

// MatchAny reports whether any of patterns matches permission.
func MatchAny(patterns []string, permission string) bool {
	for _, p := range patterns {
		if MatchPattern(p, permission) {
			return true
		}
	}
	return false
}

func wildcard(pattern, value string) bool {
	return pattern == "*" || pattern == value
}
