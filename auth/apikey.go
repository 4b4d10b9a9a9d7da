package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// APIKeyHeader carries the API key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuthenticator accepts a fixed set of keys. Keys are kept only as
// SHA-256 hashes and compared in constant time.
type APIKeyAuthenticator struct {
	hashes [][sha256.Size]byte
}

// NewAPIKeyAuthenticator creates an authenticator for keys. Blank keys are
// ignored.
func NewAPIKeyAuthenticator(keys ...string) *APIKeyAuthenticator {
	a := &APIKeyAuthenticator{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			a.hashes = append(a.hashes, sha256.Sum256([]byte(k)))
		}
	}
	return a
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return "api_key"
}

// Supports returns true if the request contains an API key header.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return req.GetHeader(APIKeyHeader) != ""
}

// Authenticate validates the API key. The principal is derived from the key
// hash so logs never carry the key itself.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *AuthRequest) (*AuthResult, error) {
	apiKey := strings.TrimSpace(req.GetHeader(APIKeyHeader))
	if apiKey == "" {
		return AuthFailure(ErrMissingCredentials, "api_key"), nil
	}

	sum := sha256.Sum256([]byte(apiKey))
	matched := 0
	for _, h := range a.hashes {
		matched |= subtle.ConstantTimeCompare(sum[:], h[:])
	}
	if matched != 1 {
		return AuthFailure(ErrInvalidCredentials, "api_key"), nil
	}

	keyID := HashAPIKey(apiKey)[:12]
	return AuthSuccess(&Identity{
		Principal: "key:" + keyID,
		Method:    AuthMethodAPIKey,
		Claims:    map[string]any{"key_id": keyID},
	}), nil
}

// HashAPIKey hashes an API key using SHA-256.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
