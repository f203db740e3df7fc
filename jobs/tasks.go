package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAudit carries queued audit writes.
	QueueAudit = "audit"

	// TaskAuditWrite persists one audit record.
	TaskAuditWrite = "audit:write"
	// TaskAuditPurge deletes audit records past retention.
	TaskAuditPurge = "audit:purge"
)

// AuditPurgePayload configures one retention run. A zero retention uses the
// worker default.
type AuditPurgePayload struct {
	RetentionSeconds int64 `json:"retention_seconds,omitempty"`
}

// Retention returns the payload retention as a duration.
func (p AuditPurgePayload) Retention() time.Duration {
	return time.Duration(p.RetentionSeconds) * time.Second
}

// NewAuditWriteTask wraps rec in a task that is never retried.
func NewAuditWriteTask(rec audit.Record) (*asynq.Task, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode audit record: %w", err)
	}
	return asynq.NewTask(TaskAuditWrite, data, asynq.Queue(QueueAudit), asynq.MaxRetry(0)), nil
}

// NewAuditPurgeTask builds the retention task.
func NewAuditPurgeTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPurgePayload{RetentionSeconds: int64(retention / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPurge, data, asynq.Queue(QueueDefault)), nil
}
