package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/service"
	"github.com/lanternhq/vestibule/pkg/httpx"
	"github.com/lanternhq/vestibule/pkg/oauthx"
	"github.com/lanternhq/vestibule/pkg/slogx"
)

// TokenHandler serves POST /token.
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	Provider *service.Provider
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues access and refresh tokens using the authorization_code and
//	@Description	refresh_token grant types. Tokens are opaque values resolved by the
//	@Description	server; clients treat them as bearer credentials.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, refresh_token)
//	@Param			code			formData	string					false	"Authorization code (authorization_code grant)"
//	@Param			code_verifier	formData	string					false	"PKCE code verifier (authorization_code grant)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI the code was issued for"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token grant)"
//	@Param			client_id		formData	string					true	"Client identifier"
//	@Param			client_secret	formData	string					false	"Client secret"
//	@Param			scope			formData	string					false	"Space-delimited list of scopes"
//	@Param			resource		formData	string					false	"RFC 8707 resource indicator"
//	@Success		200				{object}	oauthx.TokenResponse	"access_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400				{object}	oauthx.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	oauthx.ErrorResponse	"error, error_description"
//	@Failure		500				{object}	oauthx.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Router			/token [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		oauthx.ErrInvalidContentType.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		oauthx.ErrInvalidFormBody.WriteError(w)
		return
	}

	switch r.Form.Get("grant_type") {
	case "authorization_code":
		h.handleAuthorizationCodeGrant(w, r, r.Form)
	case "refresh_token":
		h.handleRefreshGrant(w, r, r.Form)
	default:
		oauthx.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *TokenHandler) handleAuthorizationCodeGrant(
	w http.ResponseWriter,
	r *http.Request,
	form url.Values,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	code := strings.TrimSpace(form.Get("code"))
	clientID := strings.TrimSpace(form.Get("client_id"))
	clientSecret := form.Get("client_secret")
	codeVerifier := strings.TrimSpace(form.Get("code_verifier"))
	redirectURI := strings.TrimSpace(form.Get("redirect_uri"))
	resource := strings.TrimSpace(form.Get("resource"))

	if code == "" || clientID == "" {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Provider.ExchangeAuthorizationCode(ctx, clientID, clientSecret, code, codeVerifier, redirectURI, resource)
	if err != nil {
		writeGrantError(w, log, "authorization_code", err)
		return
	}

	writeTokenResponse(w, pair)
}

func (h *TokenHandler) handleRefreshGrant(w http.ResponseWriter, r *http.Request, form url.Values) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	refresh := form.Get("refresh_token")
	clientID := strings.TrimSpace(form.Get("client_id"))
	clientSecret := form.Get("client_secret")
	requested := httpx.ParseSpaceDelimitedFields(form.Get("scope"))
	resource := strings.TrimSpace(form.Get("resource"))

	if refresh == "" || clientID == "" {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Provider.ExchangeRefreshToken(ctx, clientID, clientSecret, refresh, requested, resource)
	if err != nil {
		writeGrantError(w, log, "refresh_token", err)
		return
	}

	writeTokenResponse(w, pair)
}

func writeTokenResponse(w http.ResponseWriter, pair *domain.TokenPair) {
	response := oauthx.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		Scope:        strings.TrimSpace(pair.Scope),
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}

func writeGrantError(w http.ResponseWriter, log *slog.Logger, grant string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidClient):
		oauthx.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant):
		oauthx.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		oauthx.ErrInvalidScope.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		oauthx.ErrInvalidRequest.WriteError(w)
	default:
		log.Error("token grant failed", "grant_type", grant, "err", err)
		oauthx.ErrServerError.WriteError(w)
	}
}
