package users

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

// Handler serves user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the user handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Authorize(shared.OpUsersList)).Get("/", h.listUsers)
	r.Route("/{id}", func(r chi.Router) {
		r.With(h.rbac.Authorize(shared.OpUsersView)).Get("/", h.getUser)
		r.With(h.rbac.Authorize(shared.OpUsersUpdate)).Put("/", h.updateUser)
		r.With(h.rbac.Authorize(shared.OpUsersDelete)).Delete("/", h.deleteUser)
		r.With(h.rbac.Authorize(shared.OpUsersReplaceRole)).Put("/roles", h.replaceRoles)
	})
}

type replaceRolesRequest struct {
	Roles []string `json:"roles" validate:"required,dive,required,max=50"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	result, err := h.service.ListUsers(r.Context(), ListParams{Search: q.Get("q"), Page: page, PerPage: perPage})
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var in UpdateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	user, err := h.service.UpdateUser(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	actor, _ := rbac.PrincipalFromRequest(r).ID()
	if err := h.service.DeleteUser(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) replaceRoles(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req replaceRolesRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	user, err := h.service.ReplaceRoles(r.Context(), id, req.Roles)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func userID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("id: %w", httpx.ErrValidation)
	}
	return id, nil
}
