package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Token sizes in bytes of entropy before encoding.
const (
	// TokenSize128 is used for authorization codes (22 chars encoded).
	TokenSize128 = 16
	// TokenSize256 is used for access and refresh tokens (43 chars encoded).
	TokenSize256 = 32
)

// GenerateToken draws size random bytes and encodes them base64url without
// padding, so the result is safe in URLs, form bodies, and cookies.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a stable SHA-256 digest of a token, base64url
// encoded. Log lines reference tokens and codes by fingerprint so the
// secret value itself never lands in log storage.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
