package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueEnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, []byte("one")))
	require.NoError(t, q.Enqueue(ctx, []byte("two")))
	require.NoError(t, q.Enqueue(ctx, []byte("three")))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, length)

	batch, err := q.DequeueBatch(ctx, 2, time.Second)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, []byte("one"), batch[0])
	assert.Equal(t, []byte("two"), batch[1])

	batch, err = q.DequeueBatch(ctx, 10, time.Second)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, []byte("three"), batch[0])
}

func TestMemoryQueueDequeueTimeout(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	start := time.Now()
	batch, err := q.DequeueBatch(context.Background(), 10, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMemoryQueueClosed(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	require.NoError(t, q.Close())

	ctx := context.Background()
	assert.ErrorIs(t, q.Enqueue(ctx, []byte("x")), ErrQueueClosed)

	_, err := q.DequeueBatch(ctx, 1, time.Millisecond)
	assert.ErrorIs(t, err, ErrQueueClosed)

	_, err = q.Length(ctx)
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Closing twice is fine
	assert.NoError(t, q.Close())
}

func TestMemoryDeadLetterQueue(t *testing.T) {
	dlq := NewMemoryDeadLetterQueue()
	defer dlq.Close()

	ctx := context.Background()
	require.NoError(t, dlq.Add(ctx, []byte("bad"), errors.New("insert failed")))
	require.NoError(t, dlq.Add(ctx, []byte("worse"), errors.New("still failing")))

	items, err := dlq.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []byte("bad"), items[0].Payload)
	assert.Equal(t, "insert failed", items[0].Error)
	assert.NotEmpty(t, items[0].ID)
	assert.False(t, items[0].Timestamp.IsZero())

	require.NoError(t, dlq.Remove(ctx, items[0].ID))
	items, err = dlq.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	assert.ErrorIs(t, dlq.Remove(ctx, "missing"), ErrItemNotFound)
}
