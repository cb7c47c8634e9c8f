package provider_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/lanternhq/vestibule/pkg/oauthx"
	"github.com/stretchr/testify/require"
)

func TestDiscoveryDocuments(t *testing.T) {
	baseURL, cleanup := setupProviderContainer(t)
	defer cleanup()

	t.Run("authorization server metadata", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/.well-known/oauth-authorization-server")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var meta oauthx.AuthorizationServerMetadata
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
		require.NotEmpty(t, meta.Issuer)
		require.Contains(t, meta.AuthorizationEndpoint, "/authorize")
		require.Contains(t, meta.TokenEndpoint, "/token")
		require.Contains(t, meta.ResponseTypesSupported, "code")
		require.Contains(t, meta.GrantTypesSupported, "refresh_token")
		require.Contains(t, meta.CodeChallengeMethodsSupported, "S256")
	})

	t.Run("protected resource metadata", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/.well-known/oauth-protected-resource")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var meta oauthx.ProtectedResourceMetadata
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
		require.NotEmpty(t, meta.Resource)
		require.NotEmpty(t, meta.AuthorizationServers)
	})
}

func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupProviderContainer(t)
	defer cleanup()

	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := http.Get(baseURL + path)
		require.NoError(t, err)

		var health oauthx.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
		resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "ok", health.Status, path)
	}
}
