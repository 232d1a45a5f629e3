package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/muniadmin/muniadmin/internal/auth"
	"github.com/muniadmin/muniadmin/internal/observability"
	"github.com/muniadmin/muniadmin/internal/platform/httpx"
	"github.com/muniadmin/muniadmin/internal/rbac"
	"github.com/muniadmin/muniadmin/internal/roles"
	"github.com/muniadmin/muniadmin/internal/shared"
	"github.com/muniadmin/muniadmin/internal/users"
	"github.com/muniadmin/muniadmin/jobs"
)

// HealthCheck pings one dependency for /readyz.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	PermissionsHandler *rbac.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	JobsHandler        *jobs.Handler
	// JobsGuard authorizes /jobs; without it the routes are not mounted.
	JobsGuard          func(http.Handler) http.Handler
	Metrics            *observability.Metrics
	Checks             map[string]HealthCheck
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Checks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		if !InTestMode() {
			r.Use(chimw.Logger)
		}

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.JobsHandler != nil && params.JobsGuard != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.JobsGuard)
				params.JobsHandler.MountRoutes(r)
			})
		}
	})

	return r
}

func readiness(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		httpx.JSON(w, status, results)
	}
}
