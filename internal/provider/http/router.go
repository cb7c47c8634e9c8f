package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/lanternhq/vestibule/internal/provider/service"
	"github.com/lanternhq/vestibule/internal/provider/store"
	"github.com/lanternhq/vestibule/pkg/httpx"
	"github.com/lanternhq/vestibule/pkg/slogx"

	_ "github.com/lanternhq/vestibule/api/provider" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store         store.Store
	Provider      *service.Provider
	ClientService *service.ClientService
	UserService   *service.UserService
	Metadata      MetadataConfig
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuthorize()
	r.registerOAuth2()
	r.registerDiscovery()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Vestibule Authorization Server API
//	@version		0.1.0
//	@description	OAuth2 authorization server implementing the authorization code grant with
//	@description	mandatory PKCE, refresh tokens, dynamic client registration, revocation and
//	@description	the RFC 8414 / RFC 9728 discovery documents.
//	@description
//	@description				Access and refresh tokens are opaque values resolved against server-side storage.
//
//	@contact.name				LanternHQ
//	@contact.url				https://github.com/lanternhq/vestibule
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Opaque access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// verifier adapts token verification for the authn middleware.
func (r *Router) verifier() httpx.TokenVerifier {
	return func(ctx context.Context, token string) (string, []string, error) {
		info, err := r.Provider.VerifyAccessToken(ctx, token)
		if err != nil {
			return "", nil, err
		}
		return info.ClientID, info.Scopes, nil
	}
}

func (r *Router) registerAuthorize() {
	h := &AuthorizeHandler{Provider: r.Provider}

	// GET /authorize - lenient rate limit (mostly just displays forms)
	r.Mux.Handle("GET /authorize",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /authorize/login and /authorize/register - strict rate limit
	// Note: Rate limited by IP + username form field to prevent brute force
	r.Mux.Handle("POST /authorize/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)
	r.Mux.Handle("POST /authorize/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)

	// POST /authorize/consent - session cookie already gates this, moderate limit
	r.Mux.Handle("POST /authorize/consent",
		httpx.Chain(http.HandlerFunc(h.HandleConsent),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerOAuth2() {
	// POST /token - strict rate limit by IP (covers all grant types)
	tokenHandler := &TokenHandler{Provider: r.Provider}
	r.Mux.Handle("POST /token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /register - moderate rate limit (open registration endpoint)
	registerHandler := &RegisterHandler{Clients: r.ClientService}
	r.Mux.Handle("POST /register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /revoke - moderate rate limit
	revokeHandler := &RevokeHandler{Provider: r.Provider}
	r.Mux.Handle("POST /revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerDiscovery() {
	// Discovery documents are public read-only endpoints with high limits
	r.Mux.Handle("GET /.well-known/oauth-authorization-server",
		httpx.Chain(AuthorizationServerMetadataHandler(r.Metadata),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /.well-known/oauth-protected-resource",
		httpx.Chain(ProtectedResourceMetadataHandler(r.Metadata),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{
		Store:    r.store,
		Clients:  r.ClientService,
		Users:    r.UserService,
		Provider: r.Provider,
	}

	secured := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			httpx.AuthnMiddleware(r.verifier()),
			httpx.RequireAnyScope("admin"),
			httpx.RateLimitByClient(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /admin/clients", secured(h.HandleListClients))
	r.Mux.Handle("GET /admin/clients/{id}/activity", secured(h.HandleClientActivity))
	r.Mux.Handle("PATCH /admin/clients/{id}", secured(h.HandleUpdateClient))
	r.Mux.Handle("DELETE /admin/clients/{id}", secured(h.HandleDeleteClient))
	r.Mux.Handle("GET /admin/users", secured(h.HandleListUsers))
	r.Mux.Handle("POST /admin/users", secured(h.HandleCreateUser))
	r.Mux.Handle("PUT /admin/users/{username}/password", secured(h.HandleUpdateUserPassword))
	r.Mux.Handle("DELETE /admin/users/{username}", secured(h.HandleDeleteUser))
	r.Mux.Handle("GET /admin/sessions", secured(h.HandleListSessions))
	r.Mux.Handle("DELETE /admin/sessions/{id}", secured(h.HandleDeleteSession))
	r.Mux.Handle("GET /admin/pending-authorizations", secured(h.HandleListPending))
	r.Mux.Handle("DELETE /admin/pending-authorizations/{sessionId}", secured(h.HandleDeletePending))
	r.Mux.Handle("GET /admin/authorization-codes", secured(h.HandleListCodes))
	r.Mux.Handle("DELETE /admin/authorization-codes/{code}", secured(h.HandleDeleteCode))
	r.Mux.Handle("GET /admin/tokens", secured(h.HandleListTokens))
	r.Mux.Handle("DELETE /admin/tokens/{value}", secured(h.HandleDeleteToken))
	r.Mux.Handle("GET /admin/stats", secured(h.HandleStats))
	r.Mux.Handle("POST /admin/cleanup", secured(h.HandleCleanup))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
