package proxy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govgateway/internal/breaker"
	"govgateway/internal/policy"
	"govgateway/internal/pricing"
	"govgateway/internal/providers"
	"govgateway/internal/telemetry"
)

// fakeAdapter returns a canned response or error.
type fakeAdapter struct {
	name  string
	resp  *providers.ChatResponse
	err   error
	delay time.Duration
	calls int
}

func (a *fakeAdapter) Name() string     { return a.name }
func (a *fakeAdapter) Models() []string { return []string{"test-model"} }

func (a *fakeAdapter) Call(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	a.calls++
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, &providers.AdapterError{Provider: a.name, Message: ctx.Err().Error()}
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.resp, nil
}

// captureRecorder collects emitted telemetry.
type captureRecorder struct {
	mu      sync.Mutex
	metrics []telemetry.MetricRecord
	audits  []telemetry.AuditRecord
}

func (r *captureRecorder) RecordMetric(_ context.Context, m telemetry.MetricRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
	return nil
}

func (r *captureRecorder) RecordAudit(_ context.Context, a telemetry.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, a)
	return nil
}

func successResponse() *providers.ChatResponse {
	return &providers.ChatResponse{
		ID:       "resp-1",
		Provider: "openai",
		Model:    "gpt-4",
		Choices: []providers.Choice{{
			Message: providers.Message{Role: "assistant", Content: "hello"},
		}},
		Usage: providers.Usage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000},
	}
}

func newTestProxy(adapter providers.Adapter, recorder telemetry.Recorder) (*Proxy, *breaker.Registry) {
	breakers := breaker.NewRegistry(5, 30*time.Second)
	if recorder == nil {
		recorder = telemetry.NoopRecorder{}
	}
	p := New(providers.NewRegistry(adapter), breakers, pricing.NewTable(),
		policy.Chain{policy.NewMaxTokensChecker(0)}, recorder, time.Second)
	return p, breakers
}

func gpt4Request() providers.ChatRequest {
	return providers.ChatRequest{
		Provider: "openai",
		Model:    "gpt-4",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	}
}

func TestInvokeSuccess(t *testing.T) {
	adapter := &fakeAdapter{name: "openai", resp: successResponse()}
	recorder := &captureRecorder{}
	p, breakers := newTestProxy(adapter, recorder)

	userID := uuid.New()
	inv, err := p.Invoke(context.Background(), gpt4Request(), &userID, nil)
	require.NoError(t, err)

	assert.Equal(t, "resp-1", inv.Response.ID)
	// gpt-4 at $30/M input and $60/M output, one million tokens each
	assert.InDelta(t, 90.0, inv.CostUSD, 1e-9)
	assert.Equal(t, breaker.StateClosed, breakers.State(breaker.Key("openai", "gpt-4")))

	require.Len(t, recorder.metrics, 1)
	assert.Equal(t, "success", recorder.metrics[0].Status)
	assert.Equal(t, 1_000_000, recorder.metrics[0].TokensIn)
	assert.InDelta(t, 90.0, recorder.metrics[0].CostUSD, 1e-9)
	require.NotNil(t, recorder.metrics[0].UserID)
	assert.Equal(t, userID, *recorder.metrics[0].UserID)

	require.Len(t, recorder.audits, 1)
	assert.Equal(t, "LLM_REQUEST", recorder.audits[0].Action)
	assert.Equal(t, "openai:gpt-4", recorder.audits[0].ResourceID)
}

func TestInvokeUnsupportedProvider(t *testing.T) {
	adapter := &fakeAdapter{name: "openai", resp: successResponse()}
	p, breakers := newTestProxy(adapter, nil)

	req := gpt4Request()
	req.Provider = "mistral"
	_, err := p.Invoke(context.Background(), req, nil, nil)

	var unsupported *UnsupportedProviderError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "mistral", unsupported.Provider)

	// An unknown provider must leave breaker state untouched
	assert.Empty(t, breakers.Snapshot())
	assert.Zero(t, adapter.calls)
}

func TestInvokeFailureTripsBreaker(t *testing.T) {
	adapter := &fakeAdapter{name: "openai", err: &providers.AdapterError{Provider: "openai", StatusCode: 500, Message: "boom"}}
	recorder := &captureRecorder{}
	p, breakers := newTestProxy(adapter, recorder)

	for i := 0; i < 5; i++ {
		_, err := p.Invoke(context.Background(), gpt4Request(), nil, nil)
		var failure *ProviderFailureError
		require.True(t, errors.As(err, &failure))
		assert.False(t, failure.Timeout)
	}

	key := breaker.Key("openai", "gpt-4")
	assert.Equal(t, breaker.StateOpen, breakers.State(key))

	// The sixth call is rejected without reaching the adapter
	_, err := p.Invoke(context.Background(), gpt4Request(), nil, nil)
	var open *CircuitOpenError
	require.True(t, errors.As(err, &open))
	assert.Equal(t, 5, adapter.calls)

	// Failures still emit error metrics
	assert.Len(t, recorder.metrics, 5)
	assert.Equal(t, "error", recorder.metrics[0].Status)
	assert.Empty(t, recorder.audits)
}

func TestInvokeTimeout(t *testing.T) {
	adapter := &fakeAdapter{name: "openai", resp: successResponse(), delay: 5 * time.Second}
	p, _ := newTestProxy(adapter, nil)

	start := time.Now()
	_, err := p.Invoke(context.Background(), gpt4Request(), nil, nil)
	require.Less(t, time.Since(start), 3*time.Second)

	var failure *ProviderFailureError
	require.True(t, errors.As(err, &failure))
	assert.True(t, failure.Timeout)
}

func TestInvokeIgnoresClientCancellation(t *testing.T) {
	adapter := &fakeAdapter{name: "openai", resp: successResponse(), delay: 50 * time.Millisecond}
	p, _ := newTestProxy(adapter, nil)

	// The client context is already cancelled; the upstream call must
	// still run on its own deadline
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv, err := p.Invoke(ctx, gpt4Request(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "resp-1", inv.Response.ID)
}

func TestInvokePolicyViolation(t *testing.T) {
	adapter := &fakeAdapter{name: "openai", resp: successResponse()}
	p, breakers := newTestProxy(adapter, nil)

	tooMany := policy.DefaultMaxTokensCeiling + 1
	req := gpt4Request()
	req.MaxTokens = &tooMany

	_, err := p.Invoke(context.Background(), req, nil, nil)
	var violation *PolicyViolationError
	require.True(t, errors.As(err, &violation))
	require.Len(t, violation.Violations, 1)
	assert.Equal(t, "max_tokens", violation.Violations[0].Rule)

	// Policy rejections are not upstream failures
	assert.Equal(t, breaker.StateClosed, breakers.State(breaker.Key("openai", "gpt-4")))
	assert.Zero(t, adapter.calls)
}

func TestInvokeLatencyMeasured(t *testing.T) {
	adapter := &fakeAdapter{name: "openai", resp: successResponse(), delay: 30 * time.Millisecond}
	p, _ := newTestProxy(adapter, nil)

	inv, err := p.Invoke(context.Background(), gpt4Request(), nil, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, inv.LatencyMs, int64(30))
}
