package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/service"
	"github.com/lanternhq/vestibule/pkg/httpx"
	"github.com/lanternhq/vestibule/pkg/idx"
	"github.com/lanternhq/vestibule/pkg/oauthx"
	"github.com/lanternhq/vestibule/pkg/slogx"
)

const sessionCookieName = "vestibule_session"

// AuthorizeHandler drives the browser-facing half of the authorization code
// flow: the GET /authorize entry point plus the login, registration, and
// consent form submissions it renders.
type AuthorizeHandler struct {
	Provider *service.Provider
}

// HandleGet godoc
//
//	@Summary		OAuth2 Authorization Endpoint
//	@Description	Begins the authorization code + PKCE flow. Renders the login page for
//	@Description	anonymous sessions and the consent page for authenticated ones; either
//	@Description	way a session cookie is set to key the in-flight request.
//	@Tags			OAuth2
//	@Produce		html
//	@Param			response_type			query		string	true	"Must be 'code'"	default(code)
//	@Param			client_id				query		string	true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string	true	"Callback URI (must match a registered redirect URI)"
//	@Param			scope					query		string	false	"Space-delimited list of scopes"
//	@Param			state					query		string	false	"Opaque value echoed back on the redirect"
//	@Param			resource				query		string	false	"RFC 8707 resource indicator"
//	@Param			code_challenge			query		string	true	"PKCE code challenge"
//	@Param			code_challenge_method	query		string	false	"PKCE method"	default(S256)	Enums(S256, plain)
//	@Success		200						{string}	string	"Login or consent page"
//	@Failure		400						{object}	oauthx.ErrorResponse
//	@Router			/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if rt := query.Get("response_type"); !strings.EqualFold(strings.TrimSpace(rt), "code") {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}
	if method := strings.TrimSpace(query.Get("code_challenge_method")); method != "" &&
		!strings.EqualFold(method, "S256") && !strings.EqualFold(method, "plain") {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}

	clientID := strings.TrimSpace(query.Get("client_id"))
	if clientID == "" {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}

	params := domain.AuthorizationParams{
		RedirectURI:   strings.TrimSpace(query.Get("redirect_uri")),
		Scopes:        httpx.ParseSpaceDelimitedFields(query.Get("scope")),
		Resource:      strings.TrimSpace(query.Get("resource")),
		State:         query.Get("state"),
		CodeChallenge: strings.TrimSpace(query.Get("code_challenge")),
	}

	result, err := h.Provider.Authorize(r.Context(), clientID, sessionIDFromRequest(r), params)
	if err != nil {
		writeAuthorizeError(w, r, err)
		return
	}

	setSessionCookie(w, result.SessionID)

	switch result.Step {
	case service.StepConsent:
		renderConsentPage(w, http.StatusOK, consentPageData{
			ClientName: result.Client.DisplayName(),
			Scopes:     result.ValidScopes,
		})
	default:
		renderLoginPage(w, http.StatusOK, loginPageData{})
	}
}

// HandleLogin godoc
//
//	@Summary		Login Form Submission
//	@Description	Authenticates the resource owner for the current browser session.
//	@Description	Renders the consent page when an authorization request is pending,
//	@Description	otherwise a plain success page. Failures re-render the login page
//	@Description	with an inline error.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		html
//	@Param			username	formData	string	true	"Username"
//	@Param			password	formData	string	true	"Password"
//	@Success		200			{string}	string	"Consent or success page"
//	@Failure		400			{string}	string	"Login page with inline error"
//	@Failure		401			{string}	string	"Login page with inline error"
//	@Router			/authorize/login [post]
func (h *AuthorizeHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderLoginPage(w, http.StatusBadRequest, loginPageData{Error: "Invalid form submission."})
		return
	}

	result, err := h.Provider.Login(r.Context(),
		sessionIDFromRequest(r),
		r.PostForm.Get("username"),
		r.PostForm.Get("password"),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			renderLoginPage(w, http.StatusBadRequest, loginPageData{Error: "Username and password are required."})
		case errors.Is(err, service.ErrInvalidCredentials):
			renderLoginPage(w, http.StatusUnauthorized, loginPageData{Error: "Invalid username or password."})
		default:
			slogx.FromContext(r.Context()).Error("login failed", "error", err)
			renderLoginPage(w, http.StatusInternalServerError, loginPageData{Error: "Something went wrong. Please try again."})
		}
		return
	}

	h.finishLogin(w, result)
}

// HandleRegister godoc
//
//	@Summary		Registration Form Submission
//	@Description	Creates a new user account and logs the browser session in.
//	@Description	Registration implies login, so the flow continues exactly as a
//	@Description	successful login would.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		html
//	@Param			username			formData	string	true	"Username"
//	@Param			password			formData	string	true	"Password"
//	@Param			confirm_password	formData	string	true	"Password confirmation"
//	@Success		200					{string}	string	"Consent or success page"
//	@Failure		400					{string}	string	"Login page with inline error"
//	@Router			/authorize/register [post]
func (h *AuthorizeHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderLoginPage(w, http.StatusBadRequest, loginPageData{Error: "Invalid form submission."})
		return
	}

	result, err := h.Provider.Register(r.Context(),
		sessionIDFromRequest(r),
		r.PostForm.Get("username"),
		r.PostForm.Get("password"),
		r.PostForm.Get("confirm_password"),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			renderLoginPage(w, http.StatusBadRequest, loginPageData{Error: "All fields are required and passwords must match."})
		case errors.Is(err, service.ErrUsernameTaken):
			renderLoginPage(w, http.StatusBadRequest, loginPageData{Error: "Username already exists."})
		default:
			slogx.FromContext(r.Context()).Error("registration failed", "error", err)
			renderLoginPage(w, http.StatusInternalServerError, loginPageData{Error: "Something went wrong. Please try again."})
		}
		return
	}

	h.finishLogin(w, result)
}

// HandleConsent godoc
//
//	@Summary		Consent Form Submission
//	@Description	Applies the resource owner's consent decision. Approve redirects to
//	@Description	the client's redirect URI with an authorization code; deny redirects
//	@Description	with error=access_denied. Any other action re-renders the consent page.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		html
//	@Param			action	formData	string	true	"Decision"	Enums(approve, deny)
//	@Success		302		{string}	string	"Redirect back to the client"
//	@Failure		400		{string}	string	"Consent page with inline error"
//	@Failure		401		{object}	oauthx.ErrorResponse
//	@Router			/authorize/consent [post]
func (h *AuthorizeHandler) HandleConsent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oauthx.ErrInvalidFormBody.WriteError(w)
		return
	}

	sessionID := sessionIDFromRequest(r)
	action := r.PostForm.Get("action")

	result, err := h.Provider.ConfirmAuthorization(r.Context(), sessionID, action)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoPendingAuthorization):
			renderLoginPage(w, http.StatusBadRequest, loginPageData{
				Error: "Your authorization request has expired. Please start over.",
			})
		case errors.Is(err, service.ErrLoginRequired):
			renderLoginPage(w, http.StatusUnauthorized, loginPageData{
				Error: "Please sign in to continue.",
			})
		case errors.Is(err, service.ErrInvalidAction):
			h.rerenderConsent(w, r, sessionID)
		default:
			slogx.FromContext(r.Context()).Error("consent decision failed", "error", err)
			oauthx.ErrServerError.WriteError(w)
		}
		return
	}

	redirect, err := buildRedirect(result)
	if err != nil {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *AuthorizeHandler) finishLogin(w http.ResponseWriter, result *service.LoginResult) {
	setSessionCookie(w, result.SessionID)

	if result.Consent != nil {
		renderConsentPage(w, http.StatusOK, consentPageData{
			ClientName: result.Consent.Client.DisplayName(),
			Scopes:     result.Consent.ValidScopes,
		})
		return
	}
	renderSuccessPage(w, successPageData{
		Message: "You can close this window.",
	})
}

func (h *AuthorizeHandler) rerenderConsent(w http.ResponseWriter, r *http.Request, sessionID string) {
	prompt, err := h.Provider.PendingConsent(r.Context(), sessionID)
	if err != nil {
		renderLoginPage(w, http.StatusBadRequest, loginPageData{
			Error: "Your authorization request has expired. Please start over.",
		})
		return
	}
	renderConsentPage(w, http.StatusBadRequest, consentPageData{
		ClientName: prompt.Client.DisplayName(),
		Scopes:     prompt.ValidScopes,
		Error:      "Invalid action. Please approve or deny the request.",
	})
}

// buildRedirect appends the code/state or error parameters to the client's
// redirect URI, preserving any query it already carries.
func buildRedirect(result *service.ConfirmResult) (string, error) {
	u, err := url.Parse(result.RedirectURI)
	if err != nil {
		return "", err
	}

	q := u.Query()
	if result.Denied {
		q.Set("error", "access_denied")
	} else {
		q.Set("code", result.Code)
	}
	if result.State != "" {
		q.Set("state", result.State)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func writeAuthorizeError(w http.ResponseWriter, r *http.Request, err error) {
	var scopeErr *service.ScopeError
	switch {
	case errors.As(err, &scopeErr):
		oauthx.NewOAuth2Error(http.StatusBadRequest, oauthx.ErrorCodeInvalidScope, scopeErr.Error()).WriteError(w)
	case errors.Is(err, service.ErrInvalidClient):
		oauthx.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		oauthx.ErrInvalidScope.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		oauthx.ErrInvalidRequest.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("authorize failed", "error", err)
		oauthx.ErrServerError.WriteError(w)
	}
}

// sessionIDFromRequest reads the session cookie. Values that are not
// well-formed ULIDs are discarded so a tampered cookie just starts a fresh
// session instead of reaching the store.
func sessionIDFromRequest(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	id, err := idx.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

func setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
