package storage

import (
	"context"
	"fmt"

	"govgateway/internal/telemetry"
)

// TelemetryStore persists telemetry batches into Postgres. It implements
// telemetry.Store.
type TelemetryStore struct {
	db *DB
}

// NewTelemetryStore creates a telemetry store over db
func NewTelemetryStore(db *DB) *TelemetryStore {
	return &TelemetryStore{db: db}
}

const insertMetricQuery = `
	INSERT INTO llm_metrics (
		time, provider, model, user_id, team_id,
		tokens_in, tokens_out, latency_ms, cost_usd, status
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// InsertMetrics writes a batch of metric records inside one transaction
func (s *TelemetryStore) InsertMetrics(ctx context.Context, records []telemetry.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		_, err := tx.ExecContext(ctx, insertMetricQuery,
			r.Time, r.Provider, r.Model, r.UserID, r.TeamID,
			r.TokensIn, r.TokensOut, r.LatencyMs, r.CostUSD, r.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to insert metric: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metrics: %w", err)
	}
	return nil
}

const insertAuditQuery = `
	INSERT INTO audit_logs (
		time, user_id, action, resource_type, resource_id, details, checksum
	) VALUES ($1, $2, $3, $4, $5, $6, $7)`

// InsertAudits writes a batch of audit records inside one transaction
func (s *TelemetryStore) InsertAudits(ctx context.Context, records []telemetry.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		_, err := tx.ExecContext(ctx, insertAuditQuery,
			r.Time, r.UserID, r.Action, r.ResourceType, r.ResourceID, "{}", "",
		)
		if err != nil {
			return fmt.Errorf("failed to insert audit log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit logs: %w", err)
	}
	return nil
}
