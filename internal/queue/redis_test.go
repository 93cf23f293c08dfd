package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisTestConfig(t *testing.T) *Config {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := DefaultConfig("telemetry")
	cfg.UseRedis = true
	cfg.RedisAddr = mr.Addr()
	return cfg
}

func TestRedisQueueEnqueueDequeue(t *testing.T) {
	cfg := redisTestConfig(t)

	q, err := NewRedisQueue(cfg)
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, []byte(`{"kind":"metric"}`)))
	require.NoError(t, q.Enqueue(ctx, []byte(`{"kind":"audit"}`)))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)

	batch, err := q.DequeueBatch(ctx, 10, time.Second)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, []byte(`{"kind":"metric"}`), batch[0])
	assert.Equal(t, []byte(`{"kind":"audit"}`), batch[1])

	length, err = q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
}

func TestRedisQueueDequeueTimeout(t *testing.T) {
	cfg := redisTestConfig(t)

	q, err := NewRedisQueue(cfg)
	require.NoError(t, err)
	defer q.Close()

	batch, err := q.DequeueBatch(context.Background(), 10, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestRedisQueueConnectFailure(t *testing.T) {
	cfg := DefaultConfig("telemetry")
	cfg.UseRedis = true
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := NewRedisQueue(cfg)
	require.Error(t, err)
}

func TestRedisDeadLetterQueue(t *testing.T) {
	cfg := redisTestConfig(t)

	dlq, err := NewRedisDeadLetterQueue(cfg)
	require.NoError(t, err)
	defer dlq.Close()

	ctx := context.Background()
	require.NoError(t, dlq.Add(ctx, []byte("bad"), errors.New("insert failed")))

	items, err := dlq.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []byte("bad"), items[0].Payload)
	assert.Equal(t, "insert failed", items[0].Error)

	require.NoError(t, dlq.Remove(ctx, items[0].ID))
	items, err = dlq.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNewSelectsBackend(t *testing.T) {
	q, dlq, err := New(DefaultConfig("telemetry"))
	require.NoError(t, err)
	defer q.Close()
	defer dlq.Close()

	_, ok := q.(*MemoryQueue)
	assert.True(t, ok)

	cfg := redisTestConfig(t)
	rq, rdlq, err := New(cfg)
	require.NoError(t, err)
	defer rq.Close()
	defer rdlq.Close()

	_, ok = rq.(*RedisQueue)
	assert.True(t, ok)
}
