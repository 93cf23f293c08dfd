package logging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWriter records flushed batches.
type fakeWriter struct {
	mu      sync.Mutex
	batches [][]*LogRecord
}

func (w *fakeWriter) WriteBatch(_ context.Context, records []*LogRecord) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	batch := make([]*LogRecord, len(records))
	copy(batch, records)
	w.batches = append(w.batches, batch)
	return "archive/test.jsonl", nil
}

func (w *fakeWriter) batchCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.batches)
}

func TestS3SinkFlushesOnSize(t *testing.T) {
	writer := &fakeWriter{}
	sink := NewS3Sink(writer, 2, 10, time.Hour)
	defer sink.Shutdown(time.Second)

	require.NoError(t, sink.Enqueue(&LogRecord{RequestID: "a"}))
	require.NoError(t, sink.Enqueue(&LogRecord{RequestID: "b"}))

	require.Eventually(t, func() bool {
		return writer.batchCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Len(t, writer.batches[0], 2)
	assert.Equal(t, "a", writer.batches[0][0].RequestID)
}

func TestS3SinkFlushesOnInterval(t *testing.T) {
	writer := &fakeWriter{}
	sink := NewS3Sink(writer, 100, 10, 30*time.Millisecond)
	defer sink.Shutdown(time.Second)

	require.NoError(t, sink.Enqueue(&LogRecord{RequestID: "a"}))

	require.Eventually(t, func() bool {
		return writer.batchCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestS3SinkShutdownDrains(t *testing.T) {
	writer := &fakeWriter{}
	sink := NewS3Sink(writer, 100, 10, time.Hour)

	require.NoError(t, sink.Enqueue(&LogRecord{RequestID: "a"}))
	require.NoError(t, sink.Enqueue(&LogRecord{RequestID: "b"}))

	require.NoError(t, sink.Shutdown(time.Second))
	assert.Equal(t, 1, writer.batchCount())

	// A second shutdown is harmless
	assert.NoError(t, sink.Shutdown(time.Second))
}

// blockingWriter parks WriteBatch until released.
type blockingWriter struct {
	fakeWriter
	release chan struct{}
}

func (w *blockingWriter) WriteBatch(ctx context.Context, records []*LogRecord) (string, error) {
	<-w.release
	return w.fakeWriter.WriteBatch(ctx, records)
}

func TestS3SinkDropsWhenFull(t *testing.T) {
	writer := &blockingWriter{release: make(chan struct{})}
	sink := NewS3Sink(writer, 1, 1, time.Hour)

	// With the writer parked, at most one record is in flight and one
	// buffered; the rest must be dropped without blocking the caller
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			sink.Enqueue(&LogRecord{RequestID: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full buffer")
	}

	close(writer.release)
	require.NoError(t, sink.Shutdown(time.Second))

	total := 0
	writer.mu.Lock()
	for _, batch := range writer.batches {
		total += len(batch)
	}
	writer.mu.Unlock()
	assert.LessOrEqual(t, total, 2)
	assert.GreaterOrEqual(t, total, 1)
}
