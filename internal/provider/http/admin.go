package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/service"
	"github.com/lanternhq/vestibule/internal/provider/store"
	"github.com/lanternhq/vestibule/pkg/httpx"
	"github.com/lanternhq/vestibule/pkg/oauthx"
	"github.com/lanternhq/vestibule/pkg/slogx"
)

// AdminHandler exposes read and delete operations over each collection plus
// aggregate stats and an on-demand cleanup sweep. All routes require a
// bearer token carrying the admin scope; the router enforces that.
type AdminHandler struct {
	Store    store.Store
	Clients  *service.ClientService
	Users    *service.UserService
	Provider *service.Provider
}

type adminUser struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type adminSession struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type adminPending struct {
	SessionID   string    `json:"session_id"`
	ClientID    string    `json:"client_id"`
	ClientName  string    `json:"client_name,omitempty"`
	RedirectURI string    `json:"redirect_uri"`
	Scopes      []string  `json:"scopes"`
	ValidScopes []string  `json:"valid_scopes"`
	State       string    `json:"state,omitempty"`
	Resource    string    `json:"resource,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type adminCode struct {
	Code        string    `json:"code"`
	ClientID    string    `json:"client_id"`
	RedirectURI string    `json:"redirect_uri"`
	Scopes      []string  `json:"scopes"`
	Resource    string    `json:"resource,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type adminToken struct {
	Value             string    `json:"token"`
	ClientID          string    `json:"client_id"`
	Scopes            []string  `json:"scopes"`
	Type              string    `json:"type"`
	Resource          string    `json:"resource,omitempty"`
	RefreshToken      string    `json:"refresh_token,omitempty"`
	AuthorizationCode string    `json:"authorization_code,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

type adminClientActivity struct {
	Codes  []adminCode  `json:"authorization_codes"`
	Tokens []adminToken `json:"tokens"`
}

type adminStats struct {
	Clients               int `json:"clients"`
	Users                 int `json:"users"`
	Sessions              int `json:"sessions"`
	PendingAuthorizations int `json:"pending_authorizations"`
	AuthorizationCodes    int `json:"authorization_codes"`
	AccessTokens          int `json:"access_tokens"`
	RefreshTokens         int `json:"refresh_tokens"`
}

// HandleListClients godoc
//
//	@Summary	List Clients
//	@Tags		Admin
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	oauthx.ClientRegistration
//	@Router		/admin/clients [get]
func (h *AdminHandler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Clients.ListClients(r.Context())
	if err != nil {
		writeAdminError(w, r, err)
		return
	}

	out := make([]oauthx.ClientRegistration, len(clients))
	for i, c := range clients {
		out[i] = registrationResponse(c) // secret already stripped
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleUpdateClient godoc
//
//	@Summary	Update Client
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string						true	"Client id"
//	@Param		update	body		oauthx.ClientRegistration	true	"Fields to merge"
//	@Success	200		{object}	oauthx.ClientRegistration
//	@Failure	404		{object}	oauthx.ErrorResponse
//	@Router		/admin/clients/{id} [patch]
func (h *AdminHandler) HandleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body oauthx.ClientRegistration
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}

	var upd domain.ClientUpdate
	if body.ClientName != "" {
		upd.Name = &body.ClientName
	}
	if body.RedirectURIs != nil {
		upd.RedirectURIs = &body.RedirectURIs
	}
	if body.Scope != "" {
		upd.Scope = &body.Scope
	}

	client, err := h.Clients.UpdateClient(r.Context(), id, upd)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, registrationResponse(client.Sanitized()))
}

// HandleClientActivity godoc
//
//	@Summary		Client Activity
//	@Description	Lists the authorization codes and tokens currently outstanding for a
//	@Description	client.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Client id"
//	@Success		200	{object}	adminClientActivity
//	@Failure		404	{object}	oauthx.ErrorResponse
//	@Router			/admin/clients/{id}/activity [get]
func (h *AdminHandler) HandleClientActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.Clients.GetClientActivity(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAdminError(w, r, err)
		return
	}

	out := adminClientActivity{
		Codes:  make([]adminCode, len(activity.Codes)),
		Tokens: make([]adminToken, len(activity.Tokens)),
	}
	for i, c := range activity.Codes {
		out.Codes[i] = adminCode{
			Code:        c.Code,
			ClientID:    c.ClientID,
			RedirectURI: c.RedirectURI,
			Scopes:      c.Scopes,
			Resource:    c.Resource,
			CreatedAt:   c.CreatedAt,
			ExpiresAt:   c.ExpiresAt,
		}
	}
	for i, t := range activity.Tokens {
		out.Tokens[i] = adminToken{
			Value:             t.Value,
			ClientID:          t.ClientID,
			Scopes:            t.Scopes,
			Type:              string(t.Type),
			Resource:          t.Resource,
			RefreshToken:      t.RefreshToken,
			AuthorizationCode: t.AuthorizationCode,
			CreatedAt:         t.CreatedAt,
			ExpiresAt:         t.ExpiresAt,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDeleteClient godoc
//
//	@Summary	Delete Client
//	@Tags		Admin
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Client id"
//	@Success	204
//	@Failure	404	{object}	oauthx.ErrorResponse
//	@Router		/admin/clients/{id} [delete]
func (h *AdminHandler) HandleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.Clients.DeleteClient(r.Context(), r.PathValue("id")); err != nil {
		writeAdminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListUsers godoc
//
//	@Summary		List Users
//	@Description	Password hashes are redacted from the listing.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}	adminUser
//	@Router			/admin/users [get]
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListUsers(r.Context())
	if err != nil {
		writeAdminError(w, r, err)
		return
	}

	out := make([]adminUser, len(users))
	for i, u := range users {
		out[i] = adminUser{Username: u.Username, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type adminUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleCreateUser godoc
//
//	@Summary	Create User
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		user	body		adminUserRequest	true	"Username and password"
//	@Success	201		{object}	adminUser
//	@Failure	400		{object}	oauthx.ErrorResponse
//	@Failure	409		{object}	oauthx.ErrorResponse
//	@Router		/admin/users [post]
func (h *AdminHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body adminUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.Users.CreateUser(r.Context(), body.Username, body.Password)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, adminUser{
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

// HandleUpdateUserPassword godoc
//
//	@Summary	Update User Password
//	@Tags		Admin
//	@Accept		json
//	@Security	BearerAuth
//	@Param		username	path	string				true	"Username"
//	@Param		password	body	adminUserRequest	true	"New password"
//	@Success	204
//	@Failure	400	{object}	oauthx.ErrorResponse
//	@Failure	404	{object}	oauthx.ErrorResponse
//	@Router		/admin/users/{username}/password [put]
func (h *AdminHandler) HandleUpdateUserPassword(w http.ResponseWriter, r *http.Request) {
	var body adminUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Users.UpdatePassword(r.Context(), r.PathValue("username"), body.Password); err != nil {
		writeAdminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteUser godoc
//
//	@Summary	Delete User
//	@Tags		Admin
//	@Security	BearerAuth
//	@Param		username	path	string	true	"Username"
//	@Success	204
//	@Failure	404	{object}	oauthx.ErrorResponse
//	@Router		/admin/users/{username} [delete]
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.DeleteUser(r.Context(), r.PathValue("username")); err != nil {
		writeAdminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListSessions godoc
//
//	@Summary	List Sessions
//	@Tags		Admin
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	adminSession
//	@Router		/admin/sessions [get]
func (h *AdminHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Store.Sessions().ListSessions(r.Context())
	if err != nil {
		writeAdminError(w, r, err)
		return
	}

	out := make([]adminSession, len(sessions))
	for i, s := range sessions {
		out[i] = adminSession{ID: s.ID, Username: s.Username, CreatedAt: s.CreatedAt}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDeleteSession godoc
//
//	@Summary	Delete Session
//	@Tags		Admin
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Session id"
//	@Success	204
//	@Failure	404	{object}	oauthx.ErrorResponse
//	@Router		/admin/sessions/{id} [delete]
func (h *AdminHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Sessions().DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeAdminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListPending godoc
//
//	@Summary	List Pending Authorizations
//	@Tags		Admin
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	adminPending
//	@Router		/admin/pending-authorizations [get]
func (h *AdminHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Store.PendingAuthorizations().ListPendingAuthorizations(r.Context())
	if err != nil {
		writeAdminError(w, r, err)
		return
	}

	out := make([]adminPending, len(pending))
	for i, p := range pending {
		out[i] = adminPending{
			SessionID:   p.SessionID,
			ClientID:    p.Client.ID,
			ClientName:  p.Client.Name,
			RedirectURI: p.Params.RedirectURI,
			Scopes:      p.Params.Scopes,
			ValidScopes: p.ValidScopes,
			State:       p.Params.State,
			Resource:    p.Params.Resource,
			UserID:      p.UserID,
			CreatedAt:   p.CreatedAt,
			ExpiresAt:   p.ExpiresAt,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDeletePending godoc
//
//	@Summary	Delete Pending Authorization
//	@Tags		Admin
//	@Security	BearerAuth
//	@Param		sessionId	path	string	true	"Session id"
//	@Success	204
//	@Failure	404	{object}	oauthx.ErrorResponse
//	@Router		/admin/pending-authorizations/{sessionId} [delete]
func (h *AdminHandler) HandleDeletePending(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.PendingAuthorizations().DeletePendingAuthorization(r.Context(), r.PathValue("sessionId")); err != nil {
		writeAdminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListCodes godoc
//
//	@Summary	List Authorization Codes
//	@Tags		Admin
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	adminCode
//	@Router		/admin/authorization-codes [get]
func (h *AdminHandler) HandleListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.Store.AuthorizationCodes().ListCodes(r.Context())
	if err != nil {
		writeAdminError(w, r, err)
		return
	}

	out := make([]adminCode, len(codes))
	for i, c := range codes {
		out[i] = adminCode{
			Code:        c.Code,
			ClientID:    c.ClientID,
			RedirectURI: c.RedirectURI,
			Scopes:      c.Scopes,
			Resource:    c.Resource,
			CreatedAt:   c.CreatedAt,
			ExpiresAt:   c.ExpiresAt,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDeleteCode godoc
//
//	@Summary	Delete Authorization Code
//	@Tags		Admin
//	@Security	BearerAuth
//	@Param		code	path	string	true	"Code value"
//	@Success	204
//	@Failure	404	{object}	oauthx.ErrorResponse
//	@Router		/admin/authorization-codes/{code} [delete]
func (h *AdminHandler) HandleDeleteCode(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.AuthorizationCodes().DeleteCode(r.Context(), r.PathValue("code")); err != nil {
		writeAdminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListTokens godoc
//
//	@Summary	List Tokens
//	@Tags		Admin
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	adminToken
//	@Router		/admin/tokens [get]
func (h *AdminHandler) HandleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.Store.Tokens().ListTokens(r.Context())
	if err != nil {
		writeAdminError(w, r, err)
		return
	}

	out := make([]adminToken, len(tokens))
	for i, t := range tokens {
		out[i] = adminToken{
			Value:             t.Value,
			ClientID:          t.ClientID,
			Scopes:            t.Scopes,
			Type:              string(t.Type),
			Resource:          t.Resource,
			RefreshToken:      t.RefreshToken,
			AuthorizationCode: t.AuthorizationCode,
			CreatedAt:         t.CreatedAt,
			ExpiresAt:         t.ExpiresAt,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDeleteToken godoc
//
//	@Summary	Delete Token
//	@Tags		Admin
//	@Security	BearerAuth
//	@Param		value	path	string	true	"Token value"
//	@Success	204
//	@Failure	404	{object}	oauthx.ErrorResponse
//	@Router		/admin/tokens/{value} [delete]
func (h *AdminHandler) HandleDeleteToken(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Tokens().DeleteToken(r.Context(), r.PathValue("value")); err != nil {
		writeAdminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStats godoc
//
//	@Summary	Store Statistics
//	@Tags		Admin
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	adminStats
//	@Router		/admin/stats [get]
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var stats adminStats

	clients, err := h.Store.Clients().ListClients(ctx)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	stats.Clients = len(clients)

	users, err := h.Store.Users().ListUsers(ctx)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	stats.Users = len(users)

	sessions, err := h.Store.Sessions().ListSessions(ctx)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	stats.Sessions = len(sessions)

	pending, err := h.Store.PendingAuthorizations().ListPendingAuthorizations(ctx)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	stats.PendingAuthorizations = len(pending)

	codes, err := h.Store.AuthorizationCodes().ListCodes(ctx)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	stats.AuthorizationCodes = len(codes)

	tokens, err := h.Store.Tokens().ListTokens(ctx)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	for _, t := range tokens {
		switch t.Type {
		case domain.TokenTypeAccess:
			stats.AccessTokens++
		case domain.TokenTypeRefresh:
			stats.RefreshTokens++
		}
	}

	httpx.WriteJSON(w, http.StatusOK, stats)
}

// HandleCleanup godoc
//
//	@Summary		Run Cleanup Sweep
//	@Description	Triggers the expiry sweep that the background housekeeping worker
//	@Description	runs on its interval, and reports what was removed.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	service.CleanupStats
//	@Router			/admin/cleanup [post]
func (h *AdminHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.Provider.Cleanup(r.Context()))
}

func writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, store.ErrNotFound):
		oauthx.NewOAuth2Error(http.StatusNotFound, oauthx.ErrorCodeInvalidRequest, "not found").WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		oauthx.NewOAuth2Error(http.StatusBadRequest, oauthx.ErrorCodeInvalidScope, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrUsernameTaken):
		oauthx.NewOAuth2Error(http.StatusConflict, oauthx.ErrorCodeInvalidRequest, "username already taken").WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		oauthx.ErrInvalidRequest.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("admin operation failed", "path", r.URL.Path, "error", err)
		oauthx.ErrServerError.WriteError(w)
	}
}
