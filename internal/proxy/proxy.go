// Package proxy dispatches canonical chat requests to provider adapters
// behind per-upstream circuit breakers, with policy checks before the
// call and cost plus telemetry accounting after it.
package proxy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"govgateway/internal/breaker"
	"govgateway/internal/policy"
	"govgateway/internal/pricing"
	"govgateway/internal/providers"
	"govgateway/internal/telemetry"
	"govgateway/internal/utils"
)

// UnsupportedProviderError is returned before any breaker state is
// touched when the request names a provider the gateway does not serve.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %s", e.Provider)
}

// CircuitOpenError is returned when the breaker for the requested
// upstream is open and the cool-down has not elapsed.
type CircuitOpenError struct {
	Provider string
	Model    string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s:%s", e.Provider, e.Model)
}

// PolicyViolationError is returned when a request fails a policy check.
type PolicyViolationError struct {
	Violations []policy.Violation
}

func (e *PolicyViolationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return "policy violation: " + strings.Join(msgs, "; ")
}

// ProviderFailureError wraps an upstream dispatch failure. Timeout marks
// calls cut off by the gateway's own upstream deadline.
type ProviderFailureError struct {
	Provider string
	Model    string
	Timeout  bool
	Cause    error
}

func (e *ProviderFailureError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("provider %s timed out: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Cause)
}

func (e *ProviderFailureError) Unwrap() error {
	return e.Cause
}

// Invocation is the outcome of one successfully proxied request.
type Invocation struct {
	Response  *providers.ChatResponse
	CostUSD   float64
	LatencyMs int64
}

// Proxy coordinates adapters, breakers, policy, pricing, and telemetry
// for the dispatch path.
type Proxy struct {
	adapters    *providers.Registry
	breakers    *breaker.Registry
	prices      *pricing.Table
	policies    policy.Checker
	recorder    telemetry.Recorder
	logger      *utils.Logger
	callTimeout time.Duration
	now         func() time.Time
}

// New creates a proxy. The recorder may be a NoopRecorder; policy may be
// an empty Chain.
func New(adapters *providers.Registry, breakers *breaker.Registry, prices *pricing.Table,
	policies policy.Checker, recorder telemetry.Recorder, callTimeout time.Duration) *Proxy {
	return &Proxy{
		adapters:    adapters,
		breakers:    breakers,
		prices:      prices,
		policies:    policies,
		recorder:    recorder,
		logger:      utils.NewLogger("proxy"),
		callTimeout: callTimeout,
		now:         time.Now,
	}
}

// Invoke dispatches one request. The checks run in a fixed order:
// provider lookup, breaker admission, policy, then the upstream call.
// An unknown provider never touches breaker state.
func (p *Proxy) Invoke(ctx context.Context, req providers.ChatRequest, userID, teamID *uuid.UUID) (*Invocation, error) {
	adapter, ok := p.adapters.Lookup(req.Provider)
	if !ok {
		return nil, &UnsupportedProviderError{Provider: req.Provider}
	}

	key := breaker.Key(req.Provider, req.Model)
	if !p.breakers.Allow(key) {
		p.logger.Warn("Rejecting request on open circuit", "provider", req.Provider, "model", req.Model)
		return nil, &CircuitOpenError{Provider: req.Provider, Model: req.Model}
	}

	if p.policies != nil {
		if violations := p.policies.Check(ctx, &req); len(violations) > 0 {
			return nil, &PolicyViolationError{Violations: violations}
		}
	}

	// The upstream call runs on its own deadline, detached from the
	// client connection so a dropped client cannot abort it mid-flight.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.callTimeout)
	defer cancel()

	start := p.now()
	resp, err := adapter.Call(callCtx, req)
	latency := p.now().Sub(start).Milliseconds()

	if err != nil {
		p.breakers.RecordFailure(key)
		p.logger.Error("Upstream call failed", "provider", req.Provider, "model", req.Model,
			"latency_ms", latency, "error", err)

		failure := &ProviderFailureError{
			Provider: req.Provider,
			Model:    req.Model,
			Timeout:  callCtx.Err() == context.DeadlineExceeded,
			Cause:    err,
		}
		p.emitMetric(ctx, req, userID, teamID, 0, 0, latency, 0, "error")
		return nil, failure
	}

	p.breakers.RecordSuccess(key)

	cost := p.prices.Cost(req.Provider, req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	p.emitMetric(ctx, req, userID, teamID, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, latency, cost, "success")
	p.emitAudit(ctx, req, userID)

	p.logger.Debug("Proxied request", "provider", req.Provider, "model", req.Model,
		"latency_ms", latency, "cost_usd", cost)

	return &Invocation{Response: resp, CostUSD: cost, LatencyMs: latency}, nil
}

// emitMetric sends a metric record on a best-effort basis. Telemetry
// failures never fail the request.
func (p *Proxy) emitMetric(ctx context.Context, req providers.ChatRequest, userID, teamID *uuid.UUID,
	tokensIn, tokensOut int, latency int64, cost float64, status string) {
	err := p.recorder.RecordMetric(ctx, telemetry.MetricRecord{
		Time:      p.now(),
		Provider:  req.Provider,
		Model:     req.Model,
		UserID:    userID,
		TeamID:    teamID,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		LatencyMs: latency,
		CostUSD:   cost,
		Status:    status,
	})
	if err != nil {
		p.logger.Warn("Failed to record metric", "error", err)
	}
}

// emitAudit records the LLM_REQUEST audit entry for a completed call.
func (p *Proxy) emitAudit(ctx context.Context, req providers.ChatRequest, userID *uuid.UUID) {
	err := p.recorder.RecordAudit(ctx, telemetry.AuditRecord{
		Time:         p.now(),
		UserID:       userID,
		Action:       "LLM_REQUEST",
		ResourceType: "provider",
		ResourceID:   breaker.Key(req.Provider, req.Model),
	})
	if err != nil {
		p.logger.Warn("Failed to record audit log", "error", err)
	}
}
