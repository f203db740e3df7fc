package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
)

// ErrNotFound indicates the audit record does not exist.
var ErrNotFound = fmt.Errorf("audit: record %w", httpx.ErrNotFound)

// DBTX is the subset of *pgxpool.Pool the store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore persists audit records in the audit_logs table and serves queries
// over them.
type PGStore struct {
	db DBTX
}

// NewPGStore constructs a PGStore.
func NewPGStore(conn DBTX) *PGStore {
	return &PGStore{db: conn}
}

const recordColumns = `id, action, severity, user_id, user_name, details, resource, ip_address, user_agent, metadata, entity_type, entity_id, created_at`

const insertRecord = `INSERT INTO audit_logs (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const listRecords = `SELECT ` + recordColumns + ` FROM audit_logs
WHERE ($1::text IS NULL OR action = $1)
  AND ($2::text IS NULL OR resource = $2)
  AND ($3::text IS NULL OR severity = $3)
  AND ($4::uuid IS NULL OR user_id = $4)
  AND ($5::timestamptz IS NULL OR created_at >= $5)
  AND ($6::timestamptz IS NULL OR created_at < $6)
ORDER BY created_at DESC, id DESC
LIMIT $7 OFFSET $8`

// CreateLog inserts one record. A zero ID or timestamp is filled in.
func (s *PGStore) CreateLog(ctx context.Context, rec Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	meta := rec.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("audit: encode metadata: %w", err)
	}
	_, err = s.db.Exec(ctx, insertRecord,
		toPgUUID(&rec.ID), rec.Action, string(rec.Severity), toPgUUID(rec.UserID), rec.UserName,
		rec.Details, rec.Resource, rec.IPAddress, rec.UserAgent, metaJSON,
		rec.EntityType, rec.EntityID, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

// List returns records matching filters, newest first.
func (s *PGStore) List(ctx context.Context, filters Filters, limit, offset int) ([]Record, error) {
	rows, err := s.db.Query(ctx, listRecords,
		optionalText(filters.Action), optionalText(filters.Resource), optionalText(string(filters.Severity)),
		toPgUUID(filters.UserID), toPgTime(filters.From), toPgTime(filters.To), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list records: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("audit: list records: %w", err)
	}
	return records, nil
}

// Get fetches one record by ID.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	rows, err := s.db.Query(ctx, `SELECT `+recordColumns+` FROM audit_logs WHERE id = $1`, toPgUUID(&id))
	if err != nil {
		return Record{}, fmt.Errorf("audit: get record: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("audit: get record: %w", err)
	}
	return rec, nil
}

// Purge deletes records created before the cutoff and reports how many were
// removed.
func (s *PGStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("audit: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.CollectableRow) (Record, error) {
	var (
		rec      Record
		id       pgtype.UUID
		userID   pgtype.UUID
		severity string
		metaJSON []byte
	)
	if err := row.Scan(&id, &rec.Action, &severity, &userID, &rec.UserName, &rec.Details, &rec.Resource,
		&rec.IPAddress, &rec.UserAgent, &metaJSON, &rec.EntityType, &rec.EntityID, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	rec.ID = uuid.UUID(id.Bytes)
	rec.Severity = Severity(severity)
	if userID.Valid {
		uid := uuid.UUID(userID.Bytes)
		rec.UserID = &uid
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
			return Record{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return rec, nil
}

func toPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
