// Package authz decides which gateway callers may reach which downstream
// APIs.
//
// Grants map a subject to permission patterns of the form "service:action",
// where action is "read" for safe methods and "write" otherwise. A subject is
// one of the scopes of the inbound token, or the pseudo subjects
// "authenticated" (any principal) and "anonymous" (no principal).
//
//	checker := authz.NewMapChecker(map[string][]string{
//	    "gateway.admin": {"*:*"},
//	    "orders.reader": {"orders:read"},
//	    "anonymous":     {"status:read"},
//	})
//	ok := authz.Allowed(checker, authz.Subjects(p), authz.Permission("orders", "GET"))
package authz
