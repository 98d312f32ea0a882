package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/pysugar/ads-account-gateway/internal/version"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// HealthHandler runs every check and answers 503 when any fails.
func HealthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		writeJSON(w, status, map[string]any{
			"status":  state,
			"version": version.String(),
			"checks":  results,
		})
	}
}
