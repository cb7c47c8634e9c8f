package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyScope gates a handler on the caller holding at least one of
// the listed scopes. Must run after AuthnMiddleware, which puts the
// token's scopes on the request context.
func RequireAnyScope(required ...string) func(http.Handler) http.Handler {
	want := make(map[string]struct{}, len(required))
	for _, s := range required {
		want[s] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, s := range scopesFromCtx(r.Context()) {
				if _, ok := want[s]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeBearerScopeError(w, http.StatusForbidden, required...)
		})
	}
}

// writeBearerScopeError answers with the RFC 6750 insufficient_scope
// challenge naming the scopes that would have been accepted.
func writeBearerScopeError(w http.ResponseWriter, code int, required ...string) {
	w.Header().Set("WWW-Authenticate",
		`Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	w.WriteHeader(code)
	_, _ = w.Write([]byte("insufficient_scope"))
}
