// Package httptransport assembles the public HTTP surface. Feature handlers
// own their routes and middleware; this package only mounts them and adds the
// process-level endpoints.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scholar/internal/transport/http/shared"
)

// FeatureHandler is implemented by every feature's HTTP handler.
type FeatureHandler interface {
	Register(r chi.Router)
}

// HealthChecker reports the health of a backing dependency.
type HealthChecker func() error

// NewRouter mounts the feature handlers plus health and metrics endpoints.
func NewRouter(checks map[string]HealthChecker, handlers ...FeatureHandler) http.Handler {
	r := chi.NewRouter()

	for _, h := range handlers {
		h.Register(r)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		shared.WriteJSON(w, status, body)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
