package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jonwraymond/memops/observe"
)

// Settings selects the authenticators built by New.
type Settings struct {
	JWTSecret string
	JWTIssuer string
	APIKeys   []string
}

// New builds an Authenticator from settings. It returns nil when nothing is
// configured, meaning authentication is disabled.
func New(s Settings) Authenticator {
	var auths []Authenticator
	if s.JWTSecret != "" {
		auths = append(auths, NewJWTAuthenticator(JWTConfig{
			Secret: []byte(s.JWTSecret),
			Issuer: s.JWTIssuer,
		}))
	}
	if len(s.APIKeys) > 0 {
		auths = append(auths, NewAPIKeyAuthenticator(s.APIKeys...))
	}
	switch len(auths) {
	case 0:
		return nil
	case 1:
		return auths[0]
	default:
		return NewChain(auths...)
	}
}

// Middleware authenticates every request with a and stores the identity in
// the request context. Failures are answered with 401 and a JSON error body.
// A nil Authenticator passes requests through unchanged.
func Middleware(a Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		if a == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req := &AuthRequest{Headers: r.Header}

			result, err := a.Authenticate(ctx, req)
			if err != nil {
				logger.Error(ctx, "authentication error", observe.Err(err))
				writeAuthError(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}
			if !result.Authenticated || result.Identity.IsExpired(time.Now()) {
				reason := ErrInvalidCredentials
				if result.Error != nil {
					reason = result.Error
				}
				logger.Warn(ctx, "authentication failed",
					observe.Field{Key: "method", Value: result.Method},
					observe.Field{Key: "path", Value: r.URL.Path},
					observe.Err(reason),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
				writeAuthError(w, http.StatusUnauthorized, publicReason(reason))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, result.Identity)))
		})
	}
}

func publicReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "missing credentials"
	case errors.Is(err, ErrTokenExpired):
		return "token expired"
	default:
		return "invalid credentials"
	}
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
