// Package queue buffers telemetry payloads between the request path and
// the background workers that persist them. Two backends are provided:
//
//   - Memory queue: channel-based, no persistence, zero external
//     dependencies. Suited to standalone deployments.
//   - Redis queue: list-based, persistent across restarts, supports
//     distributed workers.
//
// Both pair with a dead-letter queue that captures payloads the worker
// could not persist after exhausting its retries.
package queue

import (
	"context"
	"time"
)

// Queue moves serialized payloads from producers to a draining worker.
// Payloads are opaque bytes; the worker owns the encoding.
type Queue interface {
	// Enqueue adds a payload to the queue
	Enqueue(ctx context.Context, payload []byte) error

	// DequeueBatch retrieves up to maxItems payloads, waiting up to
	// wait for the first one. An empty slice means the wait elapsed.
	DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([][]byte, error)

	// Length returns the current queue depth
	Length(ctx context.Context) (int, error)

	// Close shuts down the queue
	Close() error
}

// DeadLetterQueue holds payloads that failed processing.
type DeadLetterQueue interface {
	// Add records a failed payload together with the error
	Add(ctx context.Context, payload []byte, cause error) error

	// List retrieves up to maxItems dead-letter entries
	List(ctx context.Context, maxItems int) ([]DeadLetterItem, error)

	// Remove deletes the entry with the given id
	Remove(ctx context.Context, id string) error

	// Close shuts down the dead letter queue
	Close() error
}

// DeadLetterItem is one failed payload with its failure context.
type DeadLetterItem struct {
	ID        string    `json:"id"`
	Payload   []byte    `json:"payload"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds queue configuration shared by both backends.
type Config struct {
	// BatchSize is the maximum number of payloads per batch
	BatchSize int

	// BatchTimeout is how long a worker waits before draining a partial batch
	BatchTimeout time.Duration

	// MaxRetries is the number of delivery attempts before dead-lettering
	MaxRetries int

	// RetryBackoff is the initial backoff between attempts, doubled each retry
	RetryBackoff time.Duration

	// UseRedis selects the Redis backend over the in-memory one
	UseRedis bool

	// RedisAddr, RedisPassword, RedisDB configure the Redis backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Name keys the queue and its dead-letter companion
	Name string
}

// DefaultConfig returns the configuration used when nothing is tuned.
func DefaultConfig(name string) *Config {
	return &Config{
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Second,
		Name:         name,
	}
}

// New builds the queue and dead-letter pair selected by cfg.
func New(cfg *Config) (Queue, DeadLetterQueue, error) {
	if cfg.UseRedis {
		q, err := NewRedisQueue(cfg)
		if err != nil {
			return nil, nil, err
		}
		dlq, err := NewRedisDeadLetterQueue(cfg)
		if err != nil {
			q.Close()
			return nil, nil, err
		}
		return q, dlq, nil
	}
	return NewMemoryQueue(cfg), NewMemoryDeadLetterQueue(), nil
}
