// Package health exposes a readiness probe backed by a storage ping.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/skillset-api/internal/utils/response"
)

// Pinger is anything that can check its backend, e.g. roster.Repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New handles GET /healthz: 200 when storage answers, 503 otherwise.
// The process stays up either way.
func New(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Ping(r.Context()); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusServiceUnavailable, response.Message("storage unavailable"))
			return
		}
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": response.StatusOK})
	}
}
