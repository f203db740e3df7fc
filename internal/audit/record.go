package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity grades an audit record.
type Severity string

// Severities. The interceptor only emits info and error; warning and critical
// come from Recommend for records written by other components.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Metadata keys attached by the interceptor.
const (
	MetaMethod        = "method"
	MetaPath          = "path"
	MetaStatusCode    = "status_code"
	MetaDurationMS    = "duration_ms"
	MetaContentType   = "content_type"
	MetaContentLength = "content_length"
	MetaReferer       = "referer"
	MetaTimestamp     = "timestamp"
	MetaRequestID     = "request_id"
)

// Record is one immutable audit fact. Once handed to a Sink the producer
// keeps no reference to it.
type Record struct {
	ID         uuid.UUID         `json:"id"`
	Action     string            `json:"action"`
	Severity   Severity          `json:"severity"`
	UserID     *uuid.UUID        `json:"user_id,omitempty"`
	UserName   string            `json:"user_name"`
	Details    string            `json:"details"`
	Resource   string            `json:"resource"`
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	Metadata   map[string]string `json:"metadata"`
	EntityType string            `json:"entity_type,omitempty"`
	EntityID   string            `json:"entity_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Sink persists audit records.
type Sink interface {
	CreateLog(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec Record) error

// CreateLog calls f.
func (f SinkFunc) CreateLog(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
