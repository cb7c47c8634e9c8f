package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("produces url-safe unique values", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 100 {
			token, err := GenerateToken(TokenSize256)
			require.NoError(t, err)
			require.False(t, seen[token], "duplicate token generated")
			seen[token] = true

			require.NotContains(t, token, "=")
			require.NotContains(t, token, "+")
			require.NotContains(t, token, "/")
		}
	})

	t.Run("encoded lengths match the size constants", func(t *testing.T) {
		code, err := GenerateToken(TokenSize128)
		require.NoError(t, err)
		require.Len(t, code, 22)

		token, err := GenerateToken(TokenSize256)
		require.NoError(t, err)
		require.Len(t, token, 43)
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		for _, size := range []int{0, -1} {
			token, err := GenerateToken(size)
			require.Error(t, err)
			require.Empty(t, token)
		}
	})
}

func TestFingerprintToken(t *testing.T) {
	token, err := GenerateToken(TokenSize256)
	require.NoError(t, err)

	fp := FingerprintToken(token)
	require.Equal(t, fp, FingerprintToken(token), "fingerprint must be stable")
	require.Len(t, fp, 43)

	// A fingerprint never reveals the token it was derived from
	require.False(t, strings.Contains(fp, token))
	require.NotEqual(t, fp, FingerprintToken(token+"x"))
}
