package audithttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/rbac"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

const exportRateLimit = 10
const exportRateWindow = time.Minute

// MountRoutes registers the audit-log endpoints under r.
func (h *Handler) MountRoutes(r chi.Router, authz rbac.Middleware) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "")
		}),
	)
	r.Route("/audit-logs", func(r chi.Router) {
		r.With(authz.Authorize(shared.OpAuditList)).Get("/", h.handleList)
		r.With(authz.Authorize(shared.OpAuditExport), limiter).Get("/export.csv", h.handleExport)
		r.With(authz.Authorize(shared.OpAuditView)).Get("/{id}", h.handleGet)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := strings.TrimSpace(sess.User()); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
