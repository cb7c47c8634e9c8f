package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/service"
	"github.com/lanternhq/vestibule/pkg/httpx"
	"github.com/lanternhq/vestibule/pkg/oauthx"
	"github.com/lanternhq/vestibule/pkg/slogx"
)

// RegisterHandler serves POST /register, RFC 7591 dynamic client
// registration.
type RegisterHandler struct {
	Clients *service.ClientService
}

// ServeHTTP godoc
//
//	@Summary		Dynamic Client Registration
//	@Description	Registers a new OAuth2 client and returns the generated client_id and
//	@Description	client_secret. The secret is returned only in this response and is
//	@Description	never included in list operations.
//	@Tags			OAuth2
//	@Accept			json
//	@Produce		json
//	@Param			metadata	body		oauthx.ClientRegistration	true	"Client metadata"
//	@Success		201			{object}	oauthx.ClientRegistration	"Full registration including credentials"
//	@Failure		400			{object}	oauthx.ErrorResponse		"error, error_description"
//	@Failure		500			{object}	oauthx.ErrorResponse		"error, error_description"
//	@Router			/register [post]
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var meta oauthx.ClientRegistration
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		oauthx.NewOAuth2Error(http.StatusBadRequest, oauthx.ErrorCodeInvalidClientMeta, "request body is not valid JSON").WriteError(w)
		return
	}

	client, err := h.Clients.RegisterClient(r.Context(), service.RegisterClientRequest{
		Name:         meta.ClientName,
		RedirectURIs: meta.RedirectURIs,
		Scope:        meta.Scope,
	})
	if err != nil {
		var scopeErr *service.ScopeError
		switch {
		case errors.As(err, &scopeErr):
			oauthx.NewOAuth2Error(http.StatusBadRequest, oauthx.ErrorCodeInvalidClientMeta, scopeErr.Error()).WriteError(w)
		case errors.Is(err, service.ErrInvalidScope):
			oauthx.ErrInvalidScope.WriteError(w)
		default:
			slogx.FromContext(r.Context()).Error("client registration failed", "error", err)
			oauthx.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, registrationResponse(client))
}

func registrationResponse(c domain.Client) oauthx.ClientRegistration {
	return oauthx.ClientRegistration{
		ClientID:              c.ID,
		ClientSecret:          c.Secret,
		ClientIDIssuedAt:      c.IssuedAt,
		ClientSecretExpiresAt: c.SecretExpiresAt,
		ClientName:            c.Name,
		RedirectURIs:          c.RedirectURIs,
		Scope:                 strings.Join(c.Scopes, " "),
	}
}
