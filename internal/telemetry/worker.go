package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"govgateway/internal/queue"
	"govgateway/internal/utils"
)

// Worker drains the telemetry queue in batches and persists the records
// through a Store. It implements Recorder by enqueueing, so the request
// path never waits on the database.
type Worker struct {
	queue       queue.Queue
	dlq         queue.DeadLetterQueue
	store       Store
	config      *queue.Config
	logger      *utils.Logger
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewWorker creates a telemetry worker over the given queue and store.
func NewWorker(q queue.Queue, dlq queue.DeadLetterQueue, store Store, cfg *queue.Config) *Worker {
	if cfg == nil {
		cfg = queue.DefaultConfig("telemetry")
	}

	return &Worker{
		queue:       q,
		dlq:         dlq,
		store:       store,
		config:      cfg,
		logger:      utils.NewLogger("telemetry-worker"),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// RecordMetric queues a metric record for background persistence.
func (w *Worker) RecordMetric(ctx context.Context, m MetricRecord) error {
	return w.enqueue(ctx, Event{Kind: KindMetric, Metric: &m})
}

// RecordAudit queues an audit record for background persistence.
func (w *Worker) RecordAudit(ctx context.Context, a AuditRecord) error {
	return w.enqueue(ctx, Event{Kind: KindAudit, Audit: &a})
}

func (w *Worker) enqueue(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry event: %w", err)
	}
	return w.queue.Enqueue(ctx, payload)
}

// Start starts the worker goroutine
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *Worker) Stop() error {
	close(w.stopChan)
	<-w.stoppedChan
	return nil
}

// run is the main worker loop
func (w *Worker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Telemetry worker stopping")
			return
		case <-ctx.Done():
			w.logger.Info("Telemetry worker context cancelled")
			return
		default:
			w.processBatch(ctx)
		}
	}
}

// processBatch drains one batch and persists it by kind
func (w *Worker) processBatch(ctx context.Context) {
	payloads, err := w.queue.DequeueBatch(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		w.logger.Error("Failed to dequeue telemetry events", "error", err)
		time.Sleep(time.Second) // Back off on error
		return
	}

	if len(payloads) == 0 {
		return
	}

	w.logger.Debug("Processing telemetry batch", "count", len(payloads))

	var metrics []MetricRecord
	var audits []AuditRecord
	var metricPayloads, auditPayloads [][]byte

	for _, payload := range payloads {
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			w.logger.Error("Failed to unmarshal telemetry event", "error", err)
			continue
		}
		switch {
		case ev.Kind == KindMetric && ev.Metric != nil:
			metrics = append(metrics, *ev.Metric)
			metricPayloads = append(metricPayloads, payload)
		case ev.Kind == KindAudit && ev.Audit != nil:
			audits = append(audits, *ev.Audit)
			auditPayloads = append(auditPayloads, payload)
		default:
			w.logger.Warn("Dropping telemetry event of unknown kind", "kind", ev.Kind)
		}
	}

	if len(metrics) > 0 {
		w.persist(ctx, metricPayloads, func(ctx context.Context) error {
			return w.store.InsertMetrics(ctx, metrics)
		})
	}
	if len(audits) > 0 {
		w.persist(ctx, auditPayloads, func(ctx context.Context) error {
			return w.store.InsertAudits(ctx, audits)
		})
	}
}

// persist runs an insert with retries, dead-lettering the payloads when
// the attempts are exhausted
func (w *Worker) persist(ctx context.Context, payloads [][]byte, insert func(context.Context) error) {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			w.logger.Debug("Retrying telemetry insert", "attempt", attempt, "backoff", backoff)
			time.Sleep(backoff)
		}

		if err := insert(ctx); err != nil {
			lastErr = err
			w.logger.Error("Failed to persist telemetry batch", "attempt", attempt, "error", err)
			continue
		}
		return
	}

	if w.dlq == nil {
		return
	}
	for _, payload := range payloads {
		if err := w.dlq.Add(ctx, payload, lastErr); err != nil {
			w.logger.Error("Failed to add to dead letter queue", "error", err)
		}
	}
	w.logger.Warn("Telemetry batch moved to DLQ", "count", len(payloads), "error", lastErr)
}

// QueueLength returns the current queue depth
func (w *Worker) QueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// DeadLetterItems returns entries from the dead letter queue
func (w *Worker) DeadLetterItems(ctx context.Context, maxItems int) ([]queue.DeadLetterItem, error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}

// RetryDeadLetterItem re-enqueues a dead-lettered payload
func (w *Worker) RetryDeadLetterItem(ctx context.Context, id string) error {
	if w.dlq == nil {
		return fmt.Errorf("dead letter queue not configured")
	}

	items, err := w.dlq.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list dead letter items: %w", err)
	}

	for _, item := range items {
		if item.ID == id {
			if err := w.queue.Enqueue(ctx, item.Payload); err != nil {
				return fmt.Errorf("failed to re-enqueue item: %w", err)
			}
			if err := w.dlq.Remove(ctx, id); err != nil {
				return fmt.Errorf("failed to remove from DLQ: %w", err)
			}
			return nil
		}
	}

	return fmt.Errorf("item not found in dead letter queue")
}
