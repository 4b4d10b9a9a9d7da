// Package auth authenticates HTTP clients of the SSE transport and decides
// which memory owners an authenticated caller may act for.
//
// Two authenticators are provided: HMAC-signed JWTs in the Authorization
// header and static API keys in X-API-Key. Middleware runs an Authenticator
// on every request and stores the resulting Identity in the request context.
// Tool handlers then ask an Authorizer whether that identity may read or
// write a given userId.
package auth
