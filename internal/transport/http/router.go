// Package httptransport assembles the HTTP surface: the public screening
// endpoint, health and metrics probes, and the guarded admin routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"watchgate/internal/admin"
	"watchgate/internal/platform/metrics"
	"watchgate/internal/platform/middleware"
	"watchgate/internal/screening/handler"
	dErrors "watchgate/pkg/domain-errors"
	"watchgate/pkg/platform/httputil"
)

// HealthChecker reports readiness of the service's collaborators.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Screening *handler.Handler
	Admin     *admin.Handler
	Auth      middleware.JWTValidator
	Health    HealthChecker
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// NewRouter wires all endpoints. The admin subtree requires a bearer token;
// everything else is open to the internal network the service runs on.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := d.Health.Health(req.Context()); err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "dependencies not ready"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	d.Screening.Register(r)

	r.Group(func(g chi.Router) {
		g.Use(middleware.RequireAuth(d.Auth, d.Logger))
		d.Admin.Register(g)
	})

	return r
}
