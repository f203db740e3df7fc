package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account for management.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	Roles     []string  `json:"roles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListParams filters and pages the user listing.
type ListParams struct {
	Search  string
	Page    int
	PerPage int
}

// UpdateInput carries the mutable account fields. Nil fields are unchanged.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	IsActive *bool   `json:"is_active"`
}
