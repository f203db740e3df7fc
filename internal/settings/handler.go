package settings

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/rbac"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

// Handler exposes the settings snapshot.
type Handler struct {
	store *Store
	rbac  rbac.Middleware
}

// NewHandler constructs the settings handler.
func NewHandler(store *Store, rbac rbac.Middleware) *Handler {
	return &Handler{store: store, rbac: rbac}
}

// MountRoutes registers GET and PUT on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Authorize(shared.OpSettingsView)).Get("/", h.get)
	r.With(h.rbac.Authorize(shared.OpSettingsUpdate)).Put("/", h.put)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.store.Get())
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	var next Settings
	if err := httpx.Bind(r, &next); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	actor := rbac.PrincipalFromRequest(r).UserID
	httpx.JSON(w, http.StatusOK, h.store.Replace(next, actor))
}
