package rbac

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// RoleStore is the persistence contract behind Service.
type RoleStore interface {
	RoleLookup
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	AssignRole(ctx context.Context, userID uuid.UUID, role string) error
	RemoveRole(ctx context.Context, userID uuid.UUID, role string) error
	ReplaceUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error
}

// Invalidator drops cached role sets after grants change.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
	InvalidateAll(ctx context.Context) error
}

// Service orchestrates role management and keeps the role cache coherent.
type Service struct {
	store  RoleStore
	cache  Invalidator
	logger *slog.Logger
}

// NewService constructs a Service. cache may be nil.
func NewService(store RoleStore, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// GetUserRoles reads the user's roles straight from the store.
func (s *Service) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.store.GetUserRoles(ctx, userID)
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.store.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrInvalidRole
	}
	return s.store.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole renames or redescribes a role. Every cached role set is retired
// because the old name may be cached for many users.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrInvalidRole
	}
	role, err := s.store.UpdateRole(ctx, id, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	s.invalidateAll(ctx)
	return role, nil
}

// DeleteRole removes a role and every grant of it.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.invalidateAll(ctx)
	return nil
}

// AssignRole grants the named role to the user.
func (s *Service) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return ErrInvalidRole
	}
	if err := s.store.AssignRole(ctx, userID, role); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// RemoveRole revokes the named role from the user.
func (s *Service) RemoveRole(ctx context.Context, userID uuid.UUID, role string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return ErrInvalidRole
	}
	if err := s.store.RemoveRole(ctx, userID, role); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// ReplaceUserRoles sets the user's grants to exactly roles.
func (s *Service) ReplaceUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	cleaned := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			return ErrInvalidRole
		}
		cleaned = append(cleaned, role)
	}
	if err := s.store.ReplaceUserRoles(ctx, userID, cleaned); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("invalidate role cache", slog.String("user_id", userID.String()), slog.Any("error", err))
	}
}

func (s *Service) invalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("invalidate role cache", slog.Any("error", err))
	}
}
