package provider_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAuthorizationCodeFlow walks the whole interactive flow: client
// registration, authorization request, user signup, consent, and the
// code-for-token exchange.
func TestAuthorizationCodeFlow(t *testing.T) {
	baseURL, cleanup := setupProviderContainer(t)
	defer cleanup()

	reg := registerClient(t, baseURL, "read write")
	verifier, challenge := pkcePair(t)

	code := obtainCode(t, baseURL, reg.ClientID, challenge, "read write")

	token, status := exchangeCode(t, baseURL, reg.ClientID, reg.ClientSecret, code, verifier)
	require.Equal(t, http.StatusOK, status)
	assertTokenResponse(t, token)
	require.Equal(t, "read write", token.Scope)
}

func TestAuthorizationCodeSingleUse(t *testing.T) {
	baseURL, cleanup := setupProviderContainer(t)
	defer cleanup()

	reg := registerClient(t, baseURL, "read")
	verifier, challenge := pkcePair(t)
	code := obtainCode(t, baseURL, reg.ClientID, challenge, "read")

	_, status := exchangeCode(t, baseURL, reg.ClientID, reg.ClientSecret, code, verifier)
	require.Equal(t, http.StatusOK, status)

	// Replaying the same code must fail
	_, status = exchangeCode(t, baseURL, reg.ClientID, reg.ClientSecret, code, verifier)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestAuthorizationWrongVerifierRejected(t *testing.T) {
	baseURL, cleanup := setupProviderContainer(t)
	defer cleanup()

	reg := registerClient(t, baseURL, "read")
	_, challenge := pkcePair(t)
	wrongVerifier, _ := pkcePair(t)
	code := obtainCode(t, baseURL, reg.ClientID, challenge, "read")

	_, status := exchangeCode(t, baseURL, reg.ClientID, reg.ClientSecret, code, wrongVerifier)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestAuthorizationDenied(t *testing.T) {
	baseURL, cleanup := setupProviderContainer(t)
	defer cleanup()

	reg := registerClient(t, baseURL, "read")
	_, challenge := pkcePair(t)

	client := browserClient(t)
	startAuthorization(t, client, baseURL, reg.ClientID, challenge, "read", "deny-state")
	registerUser(t, client, baseURL, "denier", testPassword)

	loc := approveConsent(t, client, baseURL, "deny")
	require.Empty(t, loc.Query().Get("code"))
	require.Equal(t, "access_denied", loc.Query().Get("error"))
	require.Equal(t, "deny-state", loc.Query().Get("state"))
}

func TestAuthorizeRejectsUnknownClient(t *testing.T) {
	baseURL, cleanup := setupProviderContainer(t)
	defer cleanup()

	client := browserClient(t)
	resp, err := client.Get(baseURL + "/authorize?response_type=code&client_id=no-such-client&code_challenge=x&redirect_uri=http%3A%2F%2Flocalhost%2Fcallback")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
