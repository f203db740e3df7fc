package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

// RoleGranter assigns roles to accounts.
type RoleGranter interface {
	AssignRole(ctx context.Context, userID uuid.UUID, role string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo        Repository
	roles       RoleGranter
	defaultRole string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs a new Service. Registered accounts receive the user
// role when roles is non-nil.
func NewService(repo Repository, roles RoleGranter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roles, defaultRole: shared.RoleUser, logger: logger, now: time.Now}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("auth: find user", slog.Any("error", err))
		}
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates an active account and grants the default role.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	now := s.now().UTC()
	user := User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if s.roles != nil {
		if err := s.roles.AssignRole(ctx, user.ID, s.defaultRole); err != nil {
			return nil, fmt.Errorf("auth: grant default role: %w", err)
		}
	}
	return &user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
