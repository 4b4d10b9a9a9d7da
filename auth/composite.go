package auth

import (
	"context"
	"strings"
)

// Chain accepts a request when any of its authenticators does. Only
// authenticators that support the request are consulted, in order.
type Chain []Authenticator

// NewChain builds a Chain.
func NewChain(auths ...Authenticator) Chain { return Chain(auths) }

// Name joins the member names, e.g. "jwt+api_key".
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, a := range c {
		names[i] = a.Name()
	}
	return strings.Join(names, "+")
}

// Supports reports whether any member supports req.
func (c Chain) Supports(ctx context.Context, req *AuthRequest) bool {
	for _, a := range c {
		if a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate returns the first acceptance. When every supporting member
// rejects the request, the last rejection is returned; when none supports
// it, ErrMissingCredentials.
func (c Chain) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	rejected := AuthFailure(ErrMissingCredentials, "")
	for _, a := range c {
		if !a.Supports(ctx, req) {
			continue
		}
		res, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.Authenticated {
			return res, nil
		}
		rejected = res
	}
	return rejected, nil
}

var _ Authenticator = Chain(nil)
