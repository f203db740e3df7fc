package roles

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/rbac"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

// Handler serves role management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the role handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Authorize(shared.OpRolesList)).Get("/", h.listRoles)
	r.With(h.rbac.Authorize(shared.OpRolesCreate)).Post("/", h.createRole)
	r.With(h.rbac.Authorize(shared.OpRolesAssign)).Post("/assign", h.assignRole)
	r.With(h.rbac.Authorize(shared.OpRolesRemove)).Post("/remove", h.removeRole)
	r.With(h.rbac.Authorize(shared.OpRolesUpdate)).Put("/{id}", h.updateRole)
	r.With(h.rbac.Authorize(shared.OpRolesDelete)).Delete("/{id}", h.deleteRole)
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
}

type grantRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role" validate:"required,max=50"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	if roles == nil {
		roles = []rbac.Role{}
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := roleID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req roleRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := roleID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	actor, ok := rbac.PrincipalFromRequest(r).ID()
	if !ok {
		httpx.RespondError(w, r, shared.ErrUnauthenticated)
		return
	}
	if err := h.service.Assign(r.Context(), actor, req.UserID, req.Role); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	actor, ok := rbac.PrincipalFromRequest(r).ID()
	if !ok {
		httpx.RespondError(w, r, shared.ErrUnauthenticated)
		return
	}
	if err := h.service.Remove(r.Context(), actor, req.UserID, req.Role); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func roleID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id: %w", httpx.ErrValidation)
	}
	return id, nil
}
