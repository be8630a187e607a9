package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tasklist/internal/todo/cache"
	"github.com/aussiebroadwan/tasklist/internal/todo/store"
	"github.com/aussiebroadwan/tasklist/pkg/httpx"
)

// HealthResponse is the payload returned by the liveness and readiness
// probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each backing dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// cachePinger is implemented by cache backends that can report
// reachability.
type cachePinger interface {
	Ping(ctx context.Context) error
}

// LivezHandler is the liveness probe. It returns 200 whenever the process
// is up, regardless of dependency health.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}
		httpx.WriteJSON(w, http.StatusOK, response)
	}
}

// ReadyzHandler is the readiness probe. The database is a hard dependency;
// an unreachable cache is reported in the checks but does not fail the
// probe, since the service degrades to direct store reads.
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	c cache.Cache,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &HealthChecks{
			Database: "ok",
			Cache:    "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if p, ok := c.(cachePinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				checks.Cache = "degraded: " + err.Error()
			}
		} else if c == nil {
			checks.Cache = "disabled"
		}

		response := HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
