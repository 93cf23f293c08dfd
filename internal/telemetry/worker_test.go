package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govgateway/internal/queue"
)

// fakeStore records inserted batches and can be made to fail.
type fakeStore struct {
	mu       sync.Mutex
	metrics  []MetricRecord
	audits   []AuditRecord
	failures int
}

func (s *fakeStore) InsertMetrics(_ context.Context, records []MetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("database unavailable")
	}
	s.metrics = append(s.metrics, records...)
	return nil
}

func (s *fakeStore) InsertAudits(_ context.Context, records []AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("database unavailable")
	}
	s.audits = append(s.audits, records...)
	return nil
}

func (s *fakeStore) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.metrics), len(s.audits)
}

func testWorkerConfig() *queue.Config {
	cfg := queue.DefaultConfig("telemetry")
	cfg.BatchTimeout = 20 * time.Millisecond
	cfg.MaxRetries = 1
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestWorkerPersistsMetricsAndAudits(t *testing.T) {
	cfg := testWorkerConfig()
	q := queue.NewMemoryQueue(cfg)
	dlq := queue.NewMemoryDeadLetterQueue()
	store := &fakeStore{}

	w := NewWorker(q, dlq, store, cfg)
	w.Start(context.Background())
	defer w.Stop()

	userID := uuid.New()
	require.NoError(t, w.RecordMetric(context.Background(), MetricRecord{
		Time:      time.Now(),
		Provider:  "openai",
		Model:     "gpt-4",
		UserID:    &userID,
		TokensIn:  100,
		TokensOut: 50,
		LatencyMs: 420,
		CostUSD:   0.006,
		Status:    "success",
	}))
	require.NoError(t, w.RecordAudit(context.Background(), AuditRecord{
		Time:         time.Now(),
		UserID:       &userID,
		Action:       "LLM_REQUEST",
		ResourceType: "provider",
		ResourceID:   "openai:gpt-4",
	}))

	require.Eventually(t, func() bool {
		m, a := store.counts()
		return m == 1 && a == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "openai", store.metrics[0].Provider)
	assert.Equal(t, "LLM_REQUEST", store.audits[0].Action)
}

func TestWorkerRetriesThenSucceeds(t *testing.T) {
	cfg := testWorkerConfig()
	q := queue.NewMemoryQueue(cfg)
	store := &fakeStore{failures: 1}

	w := NewWorker(q, nil, store, cfg)
	w.Start(context.Background())
	defer w.Stop()

	require.NoError(t, w.RecordMetric(context.Background(), MetricRecord{Provider: "openai", Model: "gpt-4"}))

	require.Eventually(t, func() bool {
		m, _ := store.counts()
		return m == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerDeadLettersAfterRetries(t *testing.T) {
	cfg := testWorkerConfig()
	q := queue.NewMemoryQueue(cfg)
	dlq := queue.NewMemoryDeadLetterQueue()
	store := &fakeStore{failures: 100}

	w := NewWorker(q, dlq, store, cfg)
	w.Start(context.Background())
	defer w.Stop()

	require.NoError(t, w.RecordMetric(context.Background(), MetricRecord{Provider: "openai", Model: "gpt-4"}))

	require.Eventually(t, func() bool {
		items, err := dlq.List(context.Background(), 0)
		return err == nil && len(items) == 1
	}, 2*time.Second, 10*time.Millisecond)

	items, err := dlq.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Contains(t, items[0].Error, "database unavailable")
}

func TestWorkerRetryDeadLetterItem(t *testing.T) {
	cfg := testWorkerConfig()
	q := queue.NewMemoryQueue(cfg)
	dlq := queue.NewMemoryDeadLetterQueue()
	store := &fakeStore{failures: cfg.MaxRetries + 1}

	w := NewWorker(q, dlq, store, cfg)
	w.Start(context.Background())
	defer w.Stop()

	require.NoError(t, w.RecordMetric(context.Background(), MetricRecord{Provider: "openai", Model: "gpt-4"}))

	var itemID string
	require.Eventually(t, func() bool {
		items, err := dlq.List(context.Background(), 0)
		if err == nil && len(items) == 1 {
			itemID = items[0].ID
			return true
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	// The store recovers; the retried item should now persist
	require.NoError(t, w.RetryDeadLetterItem(context.Background(), itemID))

	require.Eventually(t, func() bool {
		m, _ := store.counts()
		return m == 1
	}, 2*time.Second, 10*time.Millisecond)

	items, err := dlq.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWorkerDropsUnknownKinds(t *testing.T) {
	cfg := testWorkerConfig()
	q := queue.NewMemoryQueue(cfg)
	store := &fakeStore{}

	w := NewWorker(q, nil, store, cfg)
	w.Start(context.Background())
	defer w.Stop()

	require.NoError(t, q.Enqueue(context.Background(), []byte(`{"kind":"bogus"}`)))
	require.NoError(t, q.Enqueue(context.Background(), []byte(`not json`)))
	require.NoError(t, w.RecordAudit(context.Background(), AuditRecord{Action: "LLM_REQUEST"}))

	require.Eventually(t, func() bool {
		_, a := store.counts()
		return a == 1
	}, 2*time.Second, 10*time.Millisecond)

	m, _ := store.counts()
	assert.Zero(t, m)
}
