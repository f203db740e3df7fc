package rbac

import (
	"net/http"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Engine    *Engine
	Policy    *Policy
	Principal func(*http.Request) Principal
}

// Authorize guards a handler with the requirement registered for operation.
func (m Middleware) Authorize(operation string) func(http.Handler) http.Handler {
	return m.Require(m.Policy.Requirement(operation))
}

// RequireMinimum guards a handler with every role ranked at or above min.
func (m Middleware) RequireMinimum(h Hierarchy, min string) func(http.Handler) http.Handler {
	return m.Require(NewRequirement(h.AtLeast(min)...))
}

// Require guards a handler with req. A denied request without a principal
// gets 401, otherwise 403.
func (m Middleware) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := m.principal(r)
			if m.Engine != nil && m.Engine.Decide(r.Context(), principal, req).Allowed() {
				next.ServeHTTP(w, r)
				return
			}
			if principal.Anonymous() {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		})
	}
}

func (m Middleware) principal(r *http.Request) Principal {
	if m.Principal != nil {
		return m.Principal(r)
	}
	return PrincipalFromRequest(r)
}

// PrincipalFromRequest builds the principal from the request session.
func PrincipalFromRequest(r *http.Request) Principal {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return Principal{}
	}
	return Principal{UserID: sess.User(), Name: sess.UserName()}
}
