package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/db"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

// ErrEmailTaken indicates an account with the email already exists.
var ErrEmailTaken = fmt.Errorf("auth: email %w", httpx.ErrDuplicate)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user User) error
	CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, email, password_hash, is_active, created_at, updated_at
FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	user, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (User, error) {
		var (
			u  User
			id pgtype.UUID
		)
		err := row.Scan(&id, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
		u.ID = uuid.UUID(id.Bytes)
		return u, err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new account.
func (r *PGRepository) CreateUser(ctx context.Context, user User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO users (id, name, email, password_hash, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		pgtype.UUID{Bytes: user.ID, Valid: true}, user.Name, user.Email, user.PasswordHash, user.IsActive, user.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO user_sessions (id, user_id, created_at, expires_at, ip, user_agent)
VALUES ($1, $2, $3, $4, $5, $6)`,
		id, pgtype.UUID{Bytes: userID, Valid: true}, time.Now().UTC(), expiresAt.UTC(),
		pgtype.Text{String: ip, Valid: ip != ""}, pgtype.Text{String: ua, Valid: ua != ""})
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
