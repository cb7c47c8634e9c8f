package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lanternhq/vestibule/internal/provider/service"
	"github.com/lanternhq/vestibule/pkg/oauthx"
	"github.com/lanternhq/vestibule/pkg/slogx"
)

// RevokeHandler serves POST /revoke, RFC 7009 token revocation.
type RevokeHandler struct {
	Provider *service.Provider
}

// ServeHTTP godoc
//
//	@Summary		Token Revocation Endpoint
//	@Description	Revokes an access or refresh token owned by the authenticated client.
//	@Description	Per RFC 7009 the endpoint returns 200 even when the token is unknown
//	@Description	or owned by another client.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string	true	"Token to revoke"
//	@Param			token_type_hint	formData	string	false	"Hint"	Enums(access_token, refresh_token)
//	@Param			client_id		formData	string	true	"Client identifier"
//	@Param			client_secret	formData	string	false	"Client secret"
//	@Success		200				{string}	string	"Revoked (or no-op)"
//	@Failure		400				{object}	oauthx.ErrorResponse
//	@Failure		401				{object}	oauthx.ErrorResponse
//	@Router			/revoke [post]
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		oauthx.ErrInvalidContentType.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		oauthx.ErrInvalidFormBody.WriteError(w)
		return
	}

	token := r.Form.Get("token")
	clientID := strings.TrimSpace(r.Form.Get("client_id"))
	clientSecret := r.Form.Get("client_secret")
	hint := strings.TrimSpace(r.Form.Get("token_type_hint"))

	if token == "" || clientID == "" {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Provider.RevokeToken(r.Context(), clientID, clientSecret, token, hint); err != nil {
		if errors.Is(err, service.ErrInvalidClient) {
			oauthx.ErrInvalidClient.WriteError(w)
			return
		}
		slogx.FromContext(r.Context()).Error("token revocation failed", "error", err)
		oauthx.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusOK)
}
