package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/usermgmt/pkg/authsdk"
	"github.com/aussiebroadwan/usermgmt/pkg/httpx"
)

// Pinger is a dependency the service cannot serve requests without.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// LivezHandler godoc
//
//	@Summary		Liveness Check Endpoint
//	@Description	Liveness probe. Returns 200 OK with uptime and version while the process is serving
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, health(startTime, version, "ok", nil))
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and the status of the database and, when configured, the rate limit cache
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		overallStatus := "ok"
		statusCode := http.StatusOK

		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				results[name] = "error: " + err.Error()
				overallStatus = "degraded"
				statusCode = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		httpx.WriteJSON(w, statusCode, health(startTime, version, overallStatus, results))
	}
}

func health(startTime time.Time, version, status string, checks map[string]string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(startTime).Truncate(time.Second).String(),
		Version: version,
		Checks:  checks,
	}
}
