package audithttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/audit"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

// QueryService defines the audit-trail read contract.
type QueryService interface {
	List(ctx context.Context, filters audit.Filters) (audit.Result, error)
	Get(ctx context.Context, id uuid.UUID) (audit.Record, error)
	Export(ctx context.Context, filters audit.Filters) ([]audit.Record, error)
}

// Handler serves audit-log queries.
type Handler struct {
	logger  *slog.Logger
	service QueryService
	now     func() time.Time
}

// NewHandler builds the audit-log handler.
func NewHandler(logger *slog.Logger, service QueryService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	result, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list audit logs", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, fmt.Errorf("id: %w", httpx.ErrValidation))
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	records, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit logs", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := audit.WriteCSV(&buf, records); err != nil {
		httpx.RespondError(w, r, fmt.Errorf("encode csv: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"audit-logs-%s.csv\"", h.now().UTC().Format(dateLayout)))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	filters := audit.Filters{
		Action:   strings.ToUpper(strings.TrimSpace(q.Get("action"))),
		Resource: strings.ToLower(strings.TrimSpace(q.Get("resource"))),
	}

	if v := strings.ToLower(strings.TrimSpace(q.Get("severity"))); v != "" {
		switch sev := audit.Severity(v); sev {
		case audit.SeverityInfo, audit.SeverityWarning, audit.SeverityError, audit.SeverityCritical:
			filters.Severity = sev
		default:
			return audit.Filters{}, invalid("severity")
		}
	}
	if v := strings.TrimSpace(q.Get("user_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return audit.Filters{}, invalid("user_id")
		}
		filters.UserID = &id
	}

	var err error
	if filters.From, err = parseBound(q.Get("from"), false); err != nil {
		return audit.Filters{}, invalid("from")
	}
	if filters.To, err = parseBound(q.Get("to"), true); err != nil {
		return audit.Filters{}, invalid("to")
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.From.After(filters.To) {
		return audit.Filters{}, invalid("range")
	}

	if filters.Page, err = parsePositive(q.Get("page")); err != nil {
		return audit.Filters{}, invalid("page")
	}
	if filters.PageSize, err = parsePositive(q.Get("page_size")); err != nil {
		return audit.Filters{}, invalid("page_size")
	}
	return filters, nil
}

// parseBound accepts RFC3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func parseBound(value string, upper bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func parsePositive(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}

func invalid(field string) error {
	return fmt.Errorf("%s: %w", field, httpx.ErrValidation)
}
