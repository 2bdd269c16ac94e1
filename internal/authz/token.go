package authz

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// GenerateTokenPlaintext returns a random, URL-safe bearer token. 32
// bytes of entropy, base64-encoded, comfortably exceeds the 32-character
// minimum spec.md 6 requires of BOOTSTRAP_TOKEN.
func GenerateTokenPlaintext() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken digests a token plaintext for storage and lookup.
//
// Unlike password hashing this deliberately does not use bcrypt: bearer
// tokens already carry 256 bits of server-generated entropy (unlike a
// human password), so there is nothing for a slow, salted KDF to defend
// against, and store.TokenRepository.GetByHash needs a deterministic
// digest it can look up by equality rather than comparing the
// presented token against every stored hash in turn.
func HashToken(plaintext string) (string, error) {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:]), nil
}

// VerifyToken reports whether plaintext hashes to the stored digest.
func VerifyToken(hash, plaintext string) bool {
	got, err := HashToken(plaintext)
	return err == nil && got == hash
}
