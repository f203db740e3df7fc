package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/db"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
)

var (
	// ErrNotFound indicates that the requested role does not exist.
	ErrNotFound = fmt.Errorf("rbac: role %w", httpx.ErrNotFound)
	// ErrDuplicate indicates a role with the same name exists.
	ErrDuplicate = fmt.Errorf("rbac: role %w", httpx.ErrDuplicate)
	// ErrInvalidRole indicates a blank or malformed role name.
	ErrInvalidRole = fmt.Errorf("rbac: role name %w", httpx.ErrValidation)
)

// DBTX is the subset of *pgxpool.Pool the store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Store persists roles and user role grants in PostgreSQL.
type Store struct {
	db DBTX
}

// NewStore constructs a Store.
func NewStore(conn DBTX) *Store {
	return &Store{db: conn}
}

const roleColumns = `id, name, description, created_at, updated_at`

// GetUserRoles returns the names of roles granted to the user.
func (s *Store) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = $1 ORDER BY r.name`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("rbac: user roles: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("rbac: user roles: %w", err)
	}
	return names, nil
}

// ListRoles returns all roles ordered by name.
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.db.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanRole)
}

// GetRole fetches a role by ID.
func (s *Store) GetRole(ctx context.Context, id int64) (Role, error) {
	rows, err := s.db.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	if err != nil {
		return Role{}, err
	}
	role, err := pgx.CollectExactlyOneRow(rows, scanRole)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	return role, err
}

// CreateRole inserts a new role.
func (s *Store) CreateRole(ctx context.Context, name, description string) (Role, error) {
	rows, err := s.db.Query(ctx, `INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING `+roleColumns, name, description)
	if err != nil {
		return Role{}, err
	}
	role, err := pgx.CollectExactlyOneRow(rows, scanRole)
	if db.IsUniqueViolation(err) {
		return Role{}, ErrDuplicate
	}
	return role, err
}

// UpdateRole updates an existing role.
func (s *Store) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	rows, err := s.db.Query(ctx, `UPDATE roles SET name = $2, description = $3, updated_at = NOW() WHERE id = $1 RETURNING `+roleColumns, id, name, description)
	if err != nil {
		return Role{}, err
	}
	role, err := pgx.CollectExactlyOneRow(rows, scanRole)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Role{}, ErrNotFound
	case db.IsUniqueViolation(err):
		return Role{}, ErrDuplicate
	}
	return role, err
}

// DeleteRole removes a role and its grants.
func (s *Store) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AssignRole grants the named role to the user. Granting twice is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	tag, err := s.db.Exec(ctx, `INSERT INTO user_roles (user_id, role_id)
SELECT $1, id FROM roles WHERE lower(name) = lower($2)
ON CONFLICT (user_id, role_id) DO NOTHING`, userID.String(), role)
	if err != nil {
		return fmt.Errorf("rbac: assign role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.ensureRoleExists(ctx, s.db, role)
	}
	return nil
}

// RemoveRole revokes the named role from the user.
func (s *Store) RemoveRole(ctx context.Context, userID uuid.UUID, role string) error {
	if err := s.ensureRoleExists(ctx, s.db, role); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM user_roles ur USING roles r
WHERE ur.role_id = r.id AND ur.user_id = $1 AND lower(r.name) = lower($2)`, userID.String(), role)
	if err != nil {
		return fmt.Errorf("rbac: remove role: %w", err)
	}
	return nil
}

// ReplaceUserRoles swaps the user's grants for exactly roles, atomically.
func (s *Store) ReplaceUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	return db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, role := range roles {
			if err := s.ensureRoleExists(ctx, tx, role); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID.String()); err != nil {
			return err
		}
		for _, role := range roles {
			if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id)
SELECT $1, id FROM roles WHERE lower(name) = lower($2)
ON CONFLICT (user_id, role_id) DO NOTHING`, userID.String(), role); err != nil {
				return err
			}
		}
		return nil
	})
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) ensureRoleExists(ctx context.Context, q queryRower, role string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE lower(name) = lower($1))`, role).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func scanRole(row pgx.CollectableRow) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

var _ RoleLookup = (*Store)(nil)
