package http

import (
	"net/http"
	"strings"

	"github.com/lanternhq/vestibule/pkg/httpx"
	"github.com/lanternhq/vestibule/pkg/oauthx"
)

// MetadataConfig feeds the two discovery documents.
type MetadataConfig struct {
	Issuer            string
	ResourceServerURL string
	ResourceName      string
	ScopesSupported   []string
}

// AuthorizationServerMetadataHandler godoc
//
//	@Summary		Authorization Server Metadata
//	@Description	RFC 8414 discovery document describing the server's endpoints and
//	@Description	capabilities.
//	@Tags			Discovery
//	@Produce		json
//	@Success		200	{object}	oauthx.AuthorizationServerMetadata
//	@Router			/.well-known/oauth-authorization-server [get]
func AuthorizationServerMetadataHandler(cfg MetadataConfig) http.HandlerFunc {
	issuer := strings.TrimRight(cfg.Issuer, "/")
	doc := oauthx.AuthorizationServerMetadata{
		Issuer:                            issuer,
		AuthorizationEndpoint:             issuer + "/authorize",
		TokenEndpoint:                     issuer + "/token",
		RegistrationEndpoint:              issuer + "/register",
		RevocationEndpoint:                issuer + "/revoke",
		ScopesSupported:                   cfg.ScopesSupported,
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported:     []string{"S256", "plain"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}

// ProtectedResourceMetadataHandler godoc
//
//	@Summary		Protected Resource Metadata
//	@Description	RFC 9728 discovery document pointing resource consumers at this
//	@Description	authorization server.
//	@Tags			Discovery
//	@Produce		json
//	@Success		200	{object}	oauthx.ProtectedResourceMetadata
//	@Router			/.well-known/oauth-protected-resource [get]
func ProtectedResourceMetadataHandler(cfg MetadataConfig) http.HandlerFunc {
	doc := oauthx.ProtectedResourceMetadata{
		Resource:             cfg.ResourceServerURL,
		AuthorizationServers: []string{strings.TrimRight(cfg.Issuer, "/")},
		ScopesSupported:      cfg.ScopesSupported,
		ResourceName:         cfg.ResourceName,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}
