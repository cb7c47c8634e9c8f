package http

import (
	"net/http"
	"time"

	"github.com/lanternhq/vestibule/internal/provider/store"
	"github.com/lanternhq/vestibule/pkg/httpx"
	"github.com/lanternhq/vestibule/pkg/oauthx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and a check of
//	@Description	the backing database connection
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	oauthx.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	oauthx.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &oauthx.HealthChecks{
			Database: "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		// Check database connectivity
		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := oauthx.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
