// Package identity implements credential generation and verification: API
// keys (random token, hex-SHA-256 stored form) and adaptive password
// hashing.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// apiKeyRawBytes is the entropy of a plaintext API key: 128 bits, the same
// width as the UUIDv4 the original implementation hashed (see
// server-rs/src/apikey.rs) -- this server does not need RFC 4122 structure,
// only the entropy, so it skips the UUID version/variant bit-twiddling.
const apiKeyRawBytes = 16

// ApiKey is a freshly generated, plaintext API key. The raw bytes are never
// persisted; only Hash() is stored.
type ApiKey struct {
	raw [apiKeyRawBytes]byte
}

// NewApiKey generates a fresh 128-bit API key.
func NewApiKey() (ApiKey, error) {
	var k ApiKey
	if _, err := rand.Read(k.raw[:]); err != nil {
		return ApiKey{}, fmt.Errorf("generating api key: %w", err)
	}
	return k, nil
}

// String renders the key as the 32-character lowercase hex string surfaced
// to the client.
func (k ApiKey) String() string {
	return hex.EncodeToString(k.raw[:])
}

// Hash returns the 64-hex-character stored form: hex(sha256(raw)).
func (k ApiKey) Hash() string {
	sum := sha256.Sum256(k.raw[:])
	return hex.EncodeToString(sum[:])
}

// ParseApiKey decodes a client-presented hex key and returns its raw 16
// bytes (HashApiKeyString turns them into the stored form). It fails with
// ErrMalformed if s is not exactly a 32-character hex string.
func ParseApiKey(s string) (raw [apiKeyRawBytes]byte, err error) {
	if len(s) != apiKeyRawBytes*2 {
		return raw, ErrMalformed
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return raw, ErrMalformed
	}
	copy(raw[:], decoded)
	return raw, nil
}

// HashApiKeyString hashes a presented plaintext key (as parsed by
// ParseApiKey) into its stored form, for lookup against api_key_hash.
func HashApiKeyString(s string) (string, error) {
	raw, err := ParseApiKey(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw[:])
	return hex.EncodeToString(sum[:]), nil
}

// ErrMalformed is returned by ParseApiKey/HashApiKeyString when the
// presented string isn't a well-formed 32-hex-char API key.
var ErrMalformed = fmt.Errorf("malformed api key")

// ConstantTimeEqualHash compares two hex-encoded hash strings in constant
// time, guarding the lookup-by-apikey path against timing side channels.
func ConstantTimeEqualHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
