package rbac

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents a named grant stored in the roles table.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserRole links a user to a role.
type UserRole struct {
	UserID    uuid.UUID
	RoleID    int64
	CreatedAt time.Time
}

// Principal describes the caller of a request. Roles are never carried on the
// principal; they are resolved from storage for every decision.
type Principal struct {
	UserID string
	Name   string
}

// ID parses the principal's user identifier. Anonymous principals and
// malformed identifiers report false.
func (p Principal) ID() (uuid.UUID, bool) {
	raw := strings.TrimSpace(p.UserID)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Anonymous reports whether no user identifier is attached.
func (p Principal) Anonymous() bool {
	return strings.TrimSpace(p.UserID) == ""
}
