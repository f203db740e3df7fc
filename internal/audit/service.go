package audit

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

const maxExportRows = 10000

// Filters narrows an audit query. Zero values match everything.
type Filters struct {
	Action   string
	Resource string
	Severity Severity
	UserID   *uuid.UUID
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// Paging describes the page returned by List.
type Paging struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	NextPage int  `json:"next_page,omitempty"`
	PrevPage int  `json:"prev_page,omitempty"`
}

// Result wraps one page of records.
type Result struct {
	Records []Record `json:"records"`
	Paging  Paging   `json:"paging"`
}

// Repository is the persistence contract the query service depends on.
type Repository interface {
	List(ctx context.Context, filters Filters, limit, offset int) ([]Record, error)
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Service answers audit-trail queries and applies retention.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the audit query service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// List returns one page of records, newest first.
func (s *Service) List(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, errors.New("audit: repository not configured")
	}
	page, pageSize := shared.NormalizePage(filters.Page, filters.PageSize)
	offset := (page - 1) * pageSize
	records, err := s.repo.List(ctx, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(records) > pageSize
	if hasNext {
		records = records[:pageSize]
	}
	paging := Paging{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	if records == nil {
		records = []Record{}
	}
	return Result{Records: records, Paging: paging}, nil
}

// Get fetches one record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	if s.repo == nil {
		return Record{}, errors.New("audit: repository not configured")
	}
	return s.repo.Get(ctx, id)
}

// Export returns every matching record up to a fixed cap, ignoring paging.
func (s *Service) Export(ctx context.Context, filters Filters) ([]Record, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	records, err := s.repo.List(ctx, filters, maxExportRows, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == maxExportRows {
		s.logger.Warn("audit export truncated", slog.Int("rows", maxExportRows))
	}
	return records, nil
}

// PurgeOlderThan deletes records older than retention.
func (s *Service) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	if s.repo == nil {
		return 0, errors.New("audit: repository not configured")
	}
	if retention <= 0 {
		return 0, errors.New("audit: retention must be positive")
	}
	cutoff := s.now().UTC().Add(-retention)
	removed, err := s.repo.Purge(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("audit retention purge", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
	return removed, nil
}

var csvHeader = []string{"id", "created_at", "action", "severity", "resource", "user_id", "user_name", "ip_address", "entity_type", "entity_id", "details"}

// WriteCSV serialises records as CSV.
func WriteCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		userID := ""
		if rec.UserID != nil {
			userID = rec.UserID.String()
		}
		if err := writer.Write([]string{
			rec.ID.String(),
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.Action,
			string(rec.Severity),
			rec.Resource,
			userID,
			rec.UserName,
			rec.IPAddress,
			rec.EntityType,
			rec.EntityID,
			rec.Details,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
