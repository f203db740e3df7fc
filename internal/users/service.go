package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, search string, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, in UpdateInput) (User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// RoleManager reads and replaces role grants.
type RoleManager interface {
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	ReplaceUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error
}

// ErrSelfDelete is returned when an operator tries to delete their own account.
var ErrSelfDelete = fmt.Errorf("users: cannot delete own account: %w", httpx.ErrValidation)

// Page is one page of users.
type Page struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	roles  RoleManager
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roles RoleManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roles, logger: logger}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, params ListParams) (Page, error) {
	page, perPage := shared.NormalizePage(params.Page, params.PerPage)
	offset := (page - 1) * perPage
	users, total, err := s.repo.ListUsers(ctx, params.Search, perPage, offset)
	if err != nil {
		return Page{}, err
	}
	if users == nil {
		users = []User{}
	}
	return Page{Users: users, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// GetUser returns the user with its current roles.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	return s.withRoles(ctx, user)
}

// UpdateUser changes name or active flag.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateInput) (User, error) {
	return s.repo.UpdateUser(ctx, id, in)
}

// DeleteUser removes an account other than the actor's own.
func (s *Service) DeleteUser(ctx context.Context, actor, id uuid.UUID) error {
	if actor == id {
		return ErrSelfDelete
	}
	return s.repo.DeleteUser(ctx, id)
}

// ReplaceRoles sets the user's role set to exactly roles.
func (s *Service) ReplaceRoles(ctx context.Context, id uuid.UUID, roles []string) (User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := s.roles.ReplaceUserRoles(ctx, id, roles); err != nil {
		return User{}, err
	}
	s.logger.Info("user roles replaced", slog.String("user_id", id.String()), slog.Any("roles", roles))
	return s.withRoles(ctx, user)
}

func (s *Service) withRoles(ctx context.Context, user User) (User, error) {
	if s.roles == nil {
		return user, nil
	}
	roles, err := s.roles.GetUserRoles(ctx, user.ID)
	if err != nil {
		return User{}, err
	}
	user.Roles = roles
	return user, nil
}
