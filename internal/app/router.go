package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/audit"
	audithttp "github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/audit/http"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/auth"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/observability"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/rbac"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/roles"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/settings"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/users"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/jobs"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	RBACMiddleware   rbac.Middleware
	AuditInterceptor *audit.Interceptor
	Metrics          *observability.Metrics
	Health           []Pinger

	AuthHandler     *auth.Handler
	UsersHandler    *users.Handler
	RolesHandler    *roles.Handler
	SettingsHandler *settings.Handler
	AuditHandler    *audithttp.Handler
	JobsHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router serving the admin API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
		Audit:          params.AuditInterceptor,
	}) {
		r.Use(mw)
	}

	health := healthHandler(params.Health)
	r.Get("/healthz", health)
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health)
		if params.AuthHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				params.AuthHandler.MountRoutes(r, params.RBACMiddleware, authLimiter(params.Config))
			})
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.SettingsHandler != nil {
			r.Route("/admin/settings", params.SettingsHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/admin/jobs", func(r chi.Router) {
				params.JobsHandler.MountRoutes(r, params.RBACMiddleware)
			})
		}
		params.AuditHandler.MountRoutes(r, params.RBACMiddleware)
	})
	return r
}

func authLimiter(cfg *Config) func(http.Handler) http.Handler {
	limit := 10
	if cfg != nil && cfg.AuthRateLimit > 0 {
		limit = cfg.AuthRateLimit
	}
	return httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "")
		}),
	)
}

func healthHandler(deps []Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
