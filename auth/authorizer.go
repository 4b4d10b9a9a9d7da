package auth

import (
	"context"
	"fmt"
)

// Authorizer determines if an identity may run a tool for a memory owner.
type Authorizer interface {
	// Authorize returns nil if permitted, or an error matching ErrForbidden.
	Authorize(ctx context.Context, req *AuthzRequest) error
}

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the identity making the request; nil when authentication
	// is disabled.
	Subject *Identity

	// Tool is the tool being called.
	Tool string

	// UserID is the memory owner the call reads or writes.
	UserID string
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	Subject string
	Tool    string
	UserID  string
	Reason  string
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: access denied: subject=%q tool=%q user=%q: %s",
		e.Subject, e.Tool, e.UserID, e.Reason)
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// OwnerAuthorizer confines owner-bound identities to their own userId.
// Unbound identities, admins and unauthenticated calls are allowed.
type OwnerAuthorizer struct{}

// Authorize implements Authorizer.
func (OwnerAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject == nil || req.Subject.CanActFor(req.UserID) {
		return nil
	}
	return &AuthzError{
		Subject: req.Subject.Principal,
		Tool:    req.Tool,
		UserID:  req.UserID,
		Reason:  "identity is bound to another user",
	}
}

// AuthorizerFunc is an adapter to allow use of ordinary functions as Authorizers.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

// Authorize calls the function.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

var _ Authorizer = OwnerAuthorizer{}
