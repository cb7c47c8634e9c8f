package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaltedSHA256Hasher(t *testing.T) {
	t.Parallel()

	h := SaltedSHA256Hasher{}

	t.Run("hash and verify roundtrip", func(t *testing.T) {
		encoded, err := h.Hash("abc123")
		require.NoError(t, err)

		salt, hash, ok := strings.Cut(encoded, ":")
		require.True(t, ok)
		require.Len(t, salt, 32) // 16 bytes hex encoded
		require.Len(t, hash, 64) // sha256 hex encoded

		require.NoError(t, h.Verify("abc123", encoded))
		require.ErrorIs(t, h.Verify("abc1234", encoded), ErrPasswordMismatch)
	})

	t.Run("same password gets a fresh salt", func(t *testing.T) {
		a, err := h.Hash("hunter2")
		require.NoError(t, err)
		b, err := h.Hash("hunter2")
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("legacy unsalted hashes still verify", func(t *testing.T) {
		legacy := sha256Hex("old-password")
		require.NoError(t, h.Verify("old-password", legacy))
		require.ErrorIs(t, h.Verify("wrong", legacy), ErrPasswordMismatch)
	})
}

func TestArgon2Hasher(t *testing.T) {
	t.Parallel()

	h := Argon2Hasher{}

	encoded, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	require.NoError(t, h.Verify("correct horse battery staple", encoded))
	require.ErrorIs(t, h.Verify("incorrect horse", encoded), ErrPasswordMismatch)

	t.Run("rejects malformed hashes", func(t *testing.T) {
		require.Error(t, h.Verify("whatever", "not-a-phc-string"))
	})
}

func TestHasherByName(t *testing.T) {
	t.Parallel()

	require.IsType(t, Argon2Hasher{}, HasherByName("argon2"))
	require.IsType(t, Argon2Hasher{}, HasherByName("Argon2id"))
	require.IsType(t, SaltedSHA256Hasher{}, HasherByName("sha256"))
	require.IsType(t, SaltedSHA256Hasher{}, HasherByName(""))
}
