package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/lanternhq/vestibule/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestSessionIDFromRequest(t *testing.T) {
	t.Run("returns a well-formed cookie value", func(t *testing.T) {
		id := idx.New()
		req := httptest.NewRequest(nethttp.MethodGet, "/authorize", nil)
		req.AddCookie(&nethttp.Cookie{Name: sessionCookieName, Value: id.String()})

		require.Equal(t, id.String(), sessionIDFromRequest(req))
	})

	t.Run("no cookie means no session", func(t *testing.T) {
		req := httptest.NewRequest(nethttp.MethodGet, "/authorize", nil)
		require.Empty(t, sessionIDFromRequest(req))
	})

	t.Run("tampered cookie is treated as absent", func(t *testing.T) {
		req := httptest.NewRequest(nethttp.MethodGet, "/authorize", nil)
		req.AddCookie(&nethttp.Cookie{Name: sessionCookieName, Value: "not-a-ulid"})

		require.Empty(t, sessionIDFromRequest(req))
	})
}
