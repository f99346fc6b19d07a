package api

import (
	"context"
	"net/http"
	"time"
)

// Pinger covers the readiness probe's view of the database pool.
// *pgxpool.Pool satisfies this.
type Pinger interface {
	Ping(ctx context.Context) error
}

// health answers liveness probes. Always 200 while the process runs.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness answers readiness probes. With a pool configured it pings
// the database; without one (memory mode) it reports ready.
func readiness(pool Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"reason": "database unreachable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}
