package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength  = 16
	iterations  = 3
	memory      = 64 * 1024
	parallelism = 2
	keyLength   = 32
)

// ErrPasswordMismatch is returned by Verify when the password does not match
// the stored hash.
var ErrPasswordMismatch = errors.New("cryptox: password does not match")

// PasswordHasher abstracts the password hashing scheme so the user directory
// contract is independent of the algorithm. The default SaltedSHA256Hasher is
// NOT production-grade; swap in Argon2Hasher (or stronger) for real
// deployments.
type PasswordHasher interface {
	// Hash returns an encoded hash of the password, including any salt and
	// parameters needed to verify it later.
	Hash(password string) (string, error)

	// Verify checks password against an encoded hash produced by Hash.
	// Returns ErrPasswordMismatch when the password is wrong.
	Verify(password, encoded string) error
}

// SaltedSHA256Hasher stores passwords as "salt:hex(sha256(password+salt))".
// It also accepts the legacy unsalted form hex(sha256(password)) for records
// written before salting was introduced.
type SaltedSHA256Hasher struct{}

func (SaltedSHA256Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)
	return saltHex + ":" + sha256Hex(password+saltHex), nil
}

func (SaltedSHA256Hasher) Verify(password, encoded string) error {
	salt, storedHash, ok := strings.Cut(encoded, ":")
	if !ok || salt == "" || storedHash == "" {
		// Legacy format without salt.
		if subtle.ConstantTimeCompare([]byte(sha256Hex(password)), []byte(encoded)) == 1 {
			return nil
		}
		return ErrPasswordMismatch
	}

	computed := sha256Hex(password + salt)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Argon2Hasher produces PHC-format Argon2id hashes. This is the hasher to use
// outside of demos.
type Argon2Hasher struct{}

func (Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism, b64Salt, b64Hash,
	), nil
}

func (Argon2Hasher) Verify(password, encoded string) error {
	// Parse PHC format: $argon2id$v=19$m=X,t=Y,p=Z$salt$hash
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return errors.New("invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" {
		return errors.New("invalid hash format: not argon2id")
	}
	if parts[2] != "v=19" {
		return errors.New("invalid hash format: wrong version")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("invalid hash format: failed to parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode hash: %w", err)
	}

	computed := argon2.IDKey(
		[]byte(password),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - If this overflows we have bigger problems
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// HasherByName resolves a configured hasher name. Unknown names fall back to
// the demo SHA-256 scheme.
func HasherByName(name string) PasswordHasher {
	switch strings.ToLower(name) {
	case "argon2", "argon2id":
		return Argon2Hasher{}
	default:
		return SaltedSHA256Hasher{}
	}
}
