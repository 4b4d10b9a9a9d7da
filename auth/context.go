package auth

import "context"

type identityKey struct{}

// WithIdentity attaches the authenticated caller to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller attached by WithIdentity. It is nil
// on the stdio transport and when authentication is disabled.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// CallerFromContext names the caller for log fields: its principal, or
// "anonymous".
func CallerFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil && id.Principal != "" {
		return id.Principal
	}
	return "anonymous"
}
