package utils // package utils provides helpers for one-time codes and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for stored codes
	"encoding/hex"  // hex encoding of random bytes and digests
	"time"
)

// OneTimeCode is a single-use secret handed to an account owner out of
// band (confirmation link, password reset mail).  Raw goes to the owner;
// only HashCode(Raw) is ever persisted.
type OneTimeCode struct {
	Raw string    // raw code returned to the caller
	Exp time.Time // UTC expiration time
}

// NewOneTimeCode returns a cryptographically secure random code valid for
// ttl from now.
func NewOneTimeCode(ttl time.Duration) (OneTimeCode, error) {
	raw, err := randomHex(32) // 32 bytes -> 64 hex chars
	if err != nil {
		return OneTimeCode{}, err
	}
	return OneTimeCode{Raw: raw, Exp: time.Now().UTC().Add(ttl)}, nil
}

// HashCode returns the SHA-256 hash of a raw code as a hex string.
func HashCode(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
