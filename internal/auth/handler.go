package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/audit"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/rbac"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	roles          rbac.RoleLookup
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, roles rbac.RoleLookup) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		roles:          roles,
	}
}

// MountRoutes registers auth routes on r. limiter guards the credential
// endpoints and may be nil.
func (h *Handler) MountRoutes(r chi.Router, authz rbac.Middleware, limiter func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter)
		}
		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
	})
	r.Post("/logout", h.handleLogout)
	r.With(authz.Authorize(shared.OpAuthMe)).Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Profile   `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, r, errors.New("auth: session unavailable"))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("login failed", slog.String("ip", audit.ClientIP(r)))
		httpx.RespondError(w, r, err)
		return
	}

	if sess.User() != "" {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
	}
	h.sessionManager.Renew(sess)
	sess.SetUser(user.ID.String(), user.Name)
	expiresAt := time.Now().Add(h.sessionManager.TTL()).UTC()
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, audit.ClientIP(r), r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		Token:     h.sessionManager.Token(sess),
		ExpiresAt: expiresAt,
		User:      Profile{ID: user.ID, Name: user.Name, Email: user.Email, Roles: h.rolesFor(r, user.ID)},
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	user, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, Profile{ID: user.ID, Name: user.Name, Email: user.Email, Roles: h.rolesFor(r, user.ID)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil && sess.User() != "" {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromRequest(r)
	id, ok := principal.ID()
	if !ok {
		httpx.RespondError(w, r, shared.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, Profile{ID: id, Name: principal.Name, Roles: h.rolesFor(r, id)})
}

func (h *Handler) rolesFor(r *http.Request, id uuid.UUID) []string {
	roles := []string{}
	if h.roles == nil {
		return roles
	}
	granted, err := h.roles.GetUserRoles(r.Context(), id)
	if err != nil {
		h.logger.Warn("load roles for profile", slog.Any("error", err))
		return roles
	}
	return append(roles, granted...)
}
