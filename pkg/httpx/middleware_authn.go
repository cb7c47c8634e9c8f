package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/lanternhq/vestibule/pkg/slogx"
)

// TokenVerifier resolves an opaque bearer token to the client it was issued to
// and the scopes it carries. Implementations should reject unknown and
// expired tokens with an error.
type TokenVerifier func(ctx context.Context, token string) (clientID string, scopes []string, err error)

// AuthnMiddleware authenticates requests using an opaque bearer access token.
// The resolved client id and scopes are injected into the request context for
// downstream scope checks.
func AuthnMiddleware(verify TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			clientID, scopes, err := verify(ctx, raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("access token verify failed", "err", err)
				return
			}

			// Inject into context for downstream handlers.
			ctx = context.WithValue(ctx, CtxKeyClientID, clientID)
			ctx = context.WithValue(ctx, CtxKeyScopes, scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
