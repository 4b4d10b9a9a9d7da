package auth

import (
	"context"
	"net/http"
)

// Authenticator checks the credentials an SSE client presents. A rejected
// credential is reported through AuthResult; a non-nil error means the check
// itself could not run. Implementations are safe for concurrent use.
type Authenticator interface {
	Name() string

	// Supports reports whether req carries credentials of this kind.
	Supports(ctx context.Context, req *AuthRequest) bool

	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest is the part of an HTTP request the authenticators read.
type AuthRequest struct {
	Headers http.Header
}

// GetHeader returns the first value of key, or "".
func (r *AuthRequest) GetHeader(key string) string {
	if r == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// AuthResult is the outcome of one authentication attempt. Identity is set
// only when Authenticated; Error explains a rejection.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Error         error
	Method        AuthMethod
}

// AuthSuccess accepts id.
func AuthSuccess(id *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: id, Method: id.Method}
}

// AuthFailure rejects a request that presented method credentials.
func AuthFailure(err error, method AuthMethod) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}
