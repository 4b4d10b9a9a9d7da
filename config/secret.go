package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SecretProvider resolves secret references.
//
// Implementations must be safe for concurrent use and must not log secret
// values.
type SecretProvider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// FileProvider resolves a reference as a file path and returns the file's
// contents with surrounding whitespace trimmed.
type FileProvider struct{}

// Name returns "file".
func (FileProvider) Name() string { return "file" }

// Resolve reads the file at ref.
func (FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ParseSecretRef parses a full secret reference of the form:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	const prefix = "secretref:"
	if !strings.HasPrefix(value, prefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(value, prefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

type secretResolver map[string]SecretProvider

func newSecretResolver(providers []SecretProvider) secretResolver {
	r := make(secretResolver, len(providers))
	for _, p := range providers {
		if p != nil {
			r[p.Name()] = p
		}
	}
	return r
}

func (r secretResolver) resolve(ctx context.Context, key, value string) (string, error) {
	name, ref, ok := ParseSecretRef(value)
	if !ok {
		return value, nil
	}
	p, ok := r[name]
	if !ok {
		return "", fmt.Errorf("%w: %s: provider %q is not registered", ErrSecret, key, name)
	}
	out, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSecret, key, err)
	}
	if out == "" {
		return "", fmt.Errorf("%w: %s: provider %q returned empty value", ErrSecret, key, name)
	}
	return out, nil
}
