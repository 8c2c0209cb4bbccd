// Package authheader ships AuthorizationHeaderProvider implementations for
// downstream.API.
//
//   - ClientCredentials acquires application tokens from an OAuth2 token
//     endpoint (golang.org/x/oauth2/clientcredentials) and caches them per
//     tenant and scope set.
//   - Signed mints JWT assertions locally with an auth/jwt service, for
//     both the application and the user flow.
package authheader
