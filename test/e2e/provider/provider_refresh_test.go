package provider_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func issueTokenPair(t *testing.T, baseURL string) (clientID, clientSecret, access, refresh string) {
	t.Helper()

	reg := registerClient(t, baseURL, "read write")
	verifier, challenge := pkcePair(t)
	code := obtainCode(t, baseURL, reg.ClientID, challenge, "read write")

	token, status := exchangeCode(t, baseURL, reg.ClientID, reg.ClientSecret, code, verifier)
	require.Equal(t, http.StatusOK, status)
	assertTokenResponse(t, token)
	return reg.ClientID, reg.ClientSecret, token.AccessToken, token.RefreshToken
}

func TestRefreshTokenGrant(t *testing.T) {
	baseURL, cleanup := setupProviderContainer(t)
	defer cleanup()

	clientID, clientSecret, access, refresh := issueTokenPair(t, baseURL)

	t.Run("issues new access token", func(t *testing.T) {
		token, status := refreshToken(t, baseURL, clientID, clientSecret, refresh, "")
		require.Equal(t, http.StatusOK, status)
		require.NotEmpty(t, token.AccessToken)
		require.NotEqual(t, access, token.AccessToken)
		// The refresh token itself is stable across refreshes
		require.Equal(t, refresh, token.RefreshToken)
	})

	t.Run("narrows scope", func(t *testing.T) {
		token, status := refreshToken(t, baseURL, clientID, clientSecret, refresh, "read")
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "read", token.Scope)
	})

	t.Run("rejects scope escalation", func(t *testing.T) {
		_, status := refreshToken(t, baseURL, clientID, clientSecret, refresh, "read write admin")
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("rejects foreign client", func(t *testing.T) {
		other := registerClient(t, baseURL, "read")
		_, status := refreshToken(t, baseURL, other.ClientID, other.ClientSecret, refresh, "")
		require.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestRevocation(t *testing.T) {
	baseURL, cleanup := setupProviderContainer(t)
	defer cleanup()

	clientID, clientSecret, _, refresh := issueTokenPair(t, baseURL)

	t.Run("revoked refresh token stops working", func(t *testing.T) {
		status := revokeToken(t, baseURL, clientID, clientSecret, refresh, "refresh_token")
		require.Equal(t, http.StatusOK, status)

		_, status = refreshToken(t, baseURL, clientID, clientSecret, refresh, "")
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("revoking unknown token still returns 200", func(t *testing.T) {
		status := revokeToken(t, baseURL, clientID, clientSecret, "not-a-real-token", "")
		require.Equal(t, http.StatusOK, status)
	})
}
