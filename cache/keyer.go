package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer derives cache keys from structured input.
//
// Contract:
// - Determinism: equal inputs produce equal keys regardless of map order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(namespace string, input any) (string, error)
}

// HashKeyer keys entries as "<namespace>:<hex SHA-256 prefix>".
type HashKeyer struct{}

// Key hashes the JSON encoding of input. encoding/json writes map keys in
// sorted order, so maps hash deterministically.
func (HashKeyer) Key(namespace string, input any) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("cache: encode key input: %w", err)
	}
	sum := sha256.Sum256(data)
	return namespace + ":" + hex.EncodeToString(sum[:16]), nil
}

var _ Keyer = HashKeyer{}
