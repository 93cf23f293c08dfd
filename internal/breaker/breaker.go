// Package breaker tracks upstream failures per provider:model key and
// stops dispatching to a persistently failing upstream until a cool-down
// elapses.
package breaker

import (
	"sync"
	"time"
)

// State is the circuit state for a single upstream key.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Status is a read-only view of one breaker, exposed by the health endpoint.
type Status struct {
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

// Registry tracks one independent breaker per upstream key. A tripped
// breaker for one key never affects another key.
type Registry struct {
	mu               sync.Mutex
	breakers         map[string]*circuit
	failureThreshold int
	openTimeout      time.Duration
	now              func() time.Time
}

type circuit struct {
	failures    int
	lastFailure time.Time
	state       State
}

// NewRegistry creates a registry. Breakers open after failureThreshold
// consecutive failures and probe again after openTimeout.
func NewRegistry(failureThreshold int, openTimeout time.Duration) *Registry {
	return &Registry{
		breakers:         make(map[string]*circuit),
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		now:              time.Now,
	}
}

// Key derives the breaker key for a provider/model pair.
func Key(provider, model string) string {
	return provider + ":" + model
}

// Allow reports whether a call for key may be dispatched. An open breaker
// whose cool-down has elapsed transitions to half-open and admits one probe.
func (r *Registry) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.get(key)
	switch c.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if r.now().Sub(c.lastFailure) >= r.openTimeout {
			c.state = StateHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess resets the breaker for key to closed.
func (r *Registry) RecordSuccess(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.breakers[key]
	if !ok {
		return
	}
	c.failures = 0
	c.state = StateClosed
	c.lastFailure = time.Time{}
}

// RecordFailure counts a failure for key and opens the breaker once the
// threshold is reached. A failure while half-open reopens immediately
// because the counter is already at or past the threshold.
func (r *Registry) RecordFailure(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.get(key)
	c.failures++
	c.lastFailure = r.now()
	if c.failures >= r.failureThreshold {
		c.state = StateOpen
	}
}

// State returns the current state for key without side effects.
func (r *Registry) State(key string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.breakers[key]
	if !ok {
		return StateClosed
	}
	return c.state
}

// Snapshot returns the status of every tracked breaker.
func (r *Registry) Snapshot() map[string]Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]Status, len(r.breakers))
	for key, c := range r.breakers {
		snapshot[key] = Status{State: c.state.String(), Failures: c.failures}
	}
	return snapshot
}

// get returns the circuit for key, creating a closed one if absent.
// Callers must hold r.mu.
func (r *Registry) get(key string) *circuit {
	c, ok := r.breakers[key]
	if !ok {
		c = &circuit{state: StateClosed}
		r.breakers[key] = c
	}
	return c
}
