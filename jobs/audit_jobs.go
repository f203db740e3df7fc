package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/audit"
	jobmetrics "github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/jobs"
)

// AuditWriteJob drains queued audit records into the store.
type AuditWriteJob struct {
	Sink    audit.Sink
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAuditWriteJob initialises the audit write handler.
func NewAuditWriteJob(sink audit.Sink, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditWriteJob {
	return &AuditWriteJob{Sink: sink, Logger: logger, Metrics: metrics}
}

// Handle persists the record carried by t. Failures are logged and returned
// but the task itself carries MaxRetry(0).
func (j *AuditWriteJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sink == nil {
		return errors.New("audit write: handler not configured")
	}
	tracker := j.Metrics.Track(TaskAuditWrite)
	defer func() { err = tracker.End(err) }()

	var rec audit.Record
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		return fmt.Errorf("audit write: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := j.Sink.CreateLog(ctx, rec); err != nil {
		logger(j.Logger).Error("audit write failed",
			slog.String("action", rec.Action),
			slog.String("audit_id", rec.ID.String()),
			slog.Any("error", err))
		return err
	}
	return nil
}

// Purger deletes audit records older than a retention window.
type Purger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditPurgeJob enforces audit retention.
type AuditPurgeJob struct {
	Purger    Purger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewAuditPurgeJob initialises the retention handler.
func NewAuditPurgeJob(purger Purger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditPurgeJob {
	return &AuditPurgeJob{Purger: purger, Retention: retention, Logger: logger, Metrics: metrics}
}

// Handle runs one purge.
func (j *AuditPurgeJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Purger == nil {
		return errors.New("audit purge: handler not configured")
	}
	tracker := j.Metrics.Track(TaskAuditPurge)
	defer func() { err = tracker.End(err) }()

	var payload AuditPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("audit purge: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	retention := payload.Retention()
	if retention <= 0 {
		retention = j.Retention
	}

	start := time.Now()
	deleted, err := j.Purger.PurgeOlderThan(ctx, retention)
	if err != nil {
		logger(j.Logger).Error("audit purge failed", slog.Duration("retention", retention), slog.Any("error", err))
		return err
	}
	j.Metrics.AddPurged(deleted)
	logger(j.Logger).Info("audit purge completed",
		slog.Duration("retention", retention),
		slog.Int64("deleted", deleted),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
