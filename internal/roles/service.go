package roles

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/rbac"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

var (
	// ErrProtectedRole is returned when a built-in role would be renamed or deleted.
	ErrProtectedRole = fmt.Errorf("roles: built-in role is protected: %w", httpx.ErrForbidden)
	// ErrOutranked is returned when the caller does not outrank the role or
	// the user whose grants would change.
	ErrOutranked = fmt.Errorf("roles: caller does not outrank target: %w", httpx.ErrForbidden)
)

// RoleService is the rbac surface the handler drives.
type RoleService interface {
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	GetRole(ctx context.Context, id int64) (rbac.Role, error)
	CreateRole(ctx context.Context, name, description string) (rbac.Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (rbac.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	AssignRole(ctx context.Context, userID uuid.UUID, role string) error
	RemoveRole(ctx context.Context, userID uuid.UUID, role string) error
}

// Service handles role business logic.
type Service struct {
	roles     RoleService
	lookup    rbac.RoleLookup
	hierarchy rbac.Hierarchy
	logger    *slog.Logger
}

// NewService builds Service instance. lookup resolves the roles of callers
// and targets for grant changes; without it every grant change is refused.
func NewService(roles RoleService, lookup rbac.RoleLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{roles: roles, lookup: lookup, hierarchy: rbac.DefaultHierarchy(), logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	return s.roles.ListRoles(ctx)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (rbac.Role, error) {
	return s.roles.CreateRole(ctx, name, description)
}

// UpdateRole edits a role. Built-in roles keep their names.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (rbac.Role, error) {
	current, err := s.roles.GetRole(ctx, id)
	if err != nil {
		return rbac.Role{}, err
	}
	if isBuiltIn(current.Name) && !strings.EqualFold(strings.TrimSpace(name), current.Name) {
		return rbac.Role{}, ErrProtectedRole
	}
	return s.roles.UpdateRole(ctx, id, name, description)
}

// DeleteRole removes a custom role.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	current, err := s.roles.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if isBuiltIn(current.Name) {
		return ErrProtectedRole
	}
	return s.roles.DeleteRole(ctx, id)
}

// Assign grants role to the user on behalf of actor.
func (s *Service) Assign(ctx context.Context, actor, userID uuid.UUID, role string) error {
	if err := s.checkRank(ctx, actor, userID, role); err != nil {
		return err
	}
	if err := s.roles.AssignRole(ctx, userID, role); err != nil {
		return err
	}
	s.logger.Info("role assigned", slog.String("user_id", userID.String()), slog.String("role", role))
	return nil
}

// Remove revokes role from the user on behalf of actor.
func (s *Service) Remove(ctx context.Context, actor, userID uuid.UUID, role string) error {
	if err := s.checkRank(ctx, actor, userID, role); err != nil {
		return err
	}
	if err := s.roles.RemoveRole(ctx, userID, role); err != nil {
		return err
	}
	s.logger.Info("role removed", slog.String("user_id", userID.String()), slog.String("role", role))
	return nil
}

// checkRank lets a superadmin change any grant. Everyone else must rank
// strictly above both the role and every role the target already holds.
func (s *Service) checkRank(ctx context.Context, actor, target uuid.UUID, role string) error {
	if s.lookup == nil {
		return ErrOutranked
	}
	actorRoles, err := s.lookup.GetUserRoles(ctx, actor)
	if err != nil {
		return fmt.Errorf("roles: resolve caller roles: %w", err)
	}
	actorLevel := s.topLevel(actorRoles)
	if actorLevel >= s.hierarchy.Level(shared.RoleSuperAdmin) {
		return nil
	}
	if s.hierarchy.Level(role) >= actorLevel {
		s.logger.Warn("grant change refused",
			slog.String("actor", actor.String()),
			slog.String("user_id", target.String()),
			slog.String("role", role))
		return ErrOutranked
	}
	targetRoles, err := s.lookup.GetUserRoles(ctx, target)
	if err != nil {
		return fmt.Errorf("roles: resolve target roles: %w", err)
	}
	if s.topLevel(targetRoles) >= actorLevel {
		s.logger.Warn("grant change refused",
			slog.String("actor", actor.String()),
			slog.String("user_id", target.String()),
			slog.String("role", role))
		return ErrOutranked
	}
	return nil
}

func (s *Service) topLevel(roles []string) int {
	top := 0
	for _, role := range roles {
		top = max(top, s.hierarchy.Level(role))
	}
	return top
}

func isBuiltIn(name string) bool {
	return slices.ContainsFunc(shared.CoreRoles(), func(core string) bool {
		return strings.EqualFold(core, strings.TrimSpace(name))
	})
}
