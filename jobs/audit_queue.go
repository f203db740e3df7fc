package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/audit"
)

// Enqueuer is the subset of *asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AuditQueue is an audit.Sink that hands records to the worker instead of
// writing them inline.
type AuditQueue struct {
	enqueuer Enqueuer
}

// NewAuditQueue constructs an AuditQueue.
func NewAuditQueue(enqueuer Enqueuer) *AuditQueue {
	return &AuditQueue{enqueuer: enqueuer}
}

var _ audit.Sink = (*AuditQueue)(nil)

// CreateLog enqueues rec.
func (q *AuditQueue) CreateLog(ctx context.Context, rec audit.Record) error {
	if q == nil || q.enqueuer == nil {
		return errors.New("jobs: audit queue not configured")
	}
	task, err := NewAuditWriteTask(rec)
	if err != nil {
		return err
	}
	if _, err := q.enqueuer.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("jobs: enqueue audit record: %w", err)
	}
	return nil
}
