package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
)

// ErrNotFound indicates the user does not exist.
var ErrNotFound = fmt.Errorf("users: user %w", httpx.ErrNotFound)

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db DBTX
}

// NewRepository constructs a repository.
func NewRepository(conn DBTX) *Repository {
	return &Repository{db: conn}
}

const userColumns = `id, email, name, is_active, created_at, updated_at`

// ListUsers returns one page of users ordered by name plus the total match
// count.
func (r *Repository) ListUsers(ctx context.Context, search string, limit, offset int) ([]User, int, error) {
	pattern := pgtype.Text{}
	if s := strings.TrimSpace(search); s != "" {
		pattern = pgtype.Text{String: "%" + s + "%", Valid: true}
	}
	const where = ` WHERE ($1::text IS NULL OR name ILIKE $1 OR email ILIKE $1)`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`+where, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users`+where+` ORDER BY name, id LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	return users, total, nil
}

// GetUser fetches a user by ID.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		return User{}, err
	}
	user, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// UpdateUser applies the non-nil fields of in.
func (r *Repository) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateInput) (User, error) {
	name := pgtype.Text{}
	if in.Name != nil {
		name = pgtype.Text{String: strings.TrimSpace(*in.Name), Valid: true}
	}
	active := pgtype.Bool{}
	if in.IsActive != nil {
		active = pgtype.Bool{Bool: *in.IsActive, Valid: true}
	}
	rows, err := r.db.Query(ctx, `UPDATE users SET
  name = COALESCE($2, name),
  is_active = COALESCE($3, is_active),
  updated_at = NOW()
WHERE id = $1
RETURNING `+userColumns, pgtype.UUID{Bytes: id, Valid: true}, name, active)
	if err != nil {
		return User{}, err
	}
	user, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// DeleteUser removes the user and, through cascading keys, its grants.
func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (User, error) {
	var (
		u  User
		id pgtype.UUID
	)
	err := row.Scan(&id, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	u.ID = uuid.UUID(id.Bytes)
	return u, err
}
