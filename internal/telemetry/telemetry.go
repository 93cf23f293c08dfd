package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MetricRecord captures the outcome of one proxied LLM call.
type MetricRecord struct {
	Time      time.Time  `json:"time"`
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	TeamID    *uuid.UUID `json:"team_id,omitempty"`
	TokensIn  int        `json:"tokens_in"`
	TokensOut int        `json:"tokens_out"`
	LatencyMs int64      `json:"latency_ms"`
	CostUSD   float64    `json:"cost_usd"`
	Status    string     `json:"status"`
}

// AuditRecord captures one user-attributable gateway action.
type AuditRecord struct {
	Time         time.Time  `json:"time"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	Action       string     `json:"action"`
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
}

// Recorder accepts telemetry from the request path. Implementations
// must never fail a request: errors are reported for logging only and
// callers treat emission as best effort.
type Recorder interface {
	RecordMetric(ctx context.Context, m MetricRecord) error
	RecordAudit(ctx context.Context, a AuditRecord) error
}

// NoopRecorder drops everything. Used when no persistence is configured.
type NoopRecorder struct{}

func (NoopRecorder) RecordMetric(context.Context, MetricRecord) error { return nil }
func (NoopRecorder) RecordAudit(context.Context, AuditRecord) error   { return nil }

// Event is the envelope queued between the recorder and the worker.
type Event struct {
	Kind   string        `json:"kind"` // "metric" or "audit"
	Metric *MetricRecord `json:"metric,omitempty"`
	Audit  *AuditRecord  `json:"audit,omitempty"`
}

const (
	KindMetric = "metric"
	KindAudit  = "audit"
)

// Store persists drained telemetry batches.
type Store interface {
	InsertMetrics(ctx context.Context, records []MetricRecord) error
	InsertAudits(ctx context.Context, records []AuditRecord) error
}
