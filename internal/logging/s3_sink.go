package logging

import (
	"context"
	"sync"
	"time"

	"govgateway/internal/utils"
)

// BatchWriter uploads one batch of records. Satisfied by S3Writer.
type BatchWriter interface {
	WriteBatch(ctx context.Context, records []*LogRecord) (string, error)
}

// S3Sink buffers archive records in memory and flushes them to a
// BatchWriter when the batch fills or the flush interval elapses.
// Enqueue never blocks: when the buffer is full the record is dropped.
type S3Sink struct {
	writer        BatchWriter
	flushSize     int
	flushInterval time.Duration
	logger        *utils.Logger

	recCh  chan *LogRecord
	doneCh chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewS3Sink creates a sink over the given writer and starts its flush
// loop. bufferSize bounds how many records can be queued before drops.
func NewS3Sink(writer BatchWriter, flushSize, bufferSize int, flushInterval time.Duration) *S3Sink {
	s := &S3Sink{
		writer:        writer,
		flushSize:     flushSize,
		flushInterval: flushInterval,
		logger:        utils.NewLogger("archive-sink"),
		recCh:         make(chan *LogRecord, bufferSize),
		doneCh:        make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// Enqueue queues a record for archiving. Records are dropped when the
// buffer is full.
func (s *S3Sink) Enqueue(rec *LogRecord) error {
	select {
	case s.recCh <- rec:
	default:
		s.logger.Warn("Archive buffer full, dropping record", "request_id", rec.RequestID)
	}
	return nil
}

// run accumulates records and flushes on size or interval
func (s *S3Sink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	var batch []*LogRecord

	for {
		select {
		case rec := <-s.recCh:
			batch = append(batch, rec)
			if len(batch) >= s.flushSize {
				s.flush(batch)
				batch = nil
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = nil
			}
		case <-s.doneCh:
			// Drain whatever is still queued before exiting
			for {
				select {
				case rec := <-s.recCh:
					batch = append(batch, rec)
				default:
					if len(batch) > 0 {
						s.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (s *S3Sink) flush(batch []*LogRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.writer.WriteBatch(ctx, batch); err != nil {
		s.logger.Error("Failed to flush archive batch", "count", len(batch), "error", err)
	}
}

// Shutdown flushes buffered records and stops the flush loop. The
// timeout bounds how long to wait for the final flush.
func (s *S3Sink) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.doneCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}
