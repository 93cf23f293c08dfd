package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRegistry() *Registry {
	return NewRegistry(5, 30*time.Second)
}

func TestOpensAfterThreshold(t *testing.T) {
	reg := newTestRegistry()
	key := Key("openai", "gpt-4")

	for i := 0; i < 4; i++ {
		reg.RecordFailure(key)
		assert.Equal(t, StateClosed, reg.State(key), "after %d failures", i+1)
		assert.True(t, reg.Allow(key))
	}

	reg.RecordFailure(key)
	assert.Equal(t, StateOpen, reg.State(key))
	assert.False(t, reg.Allow(key))
}

func TestSuccessResets(t *testing.T) {
	reg := newTestRegistry()
	key := Key("openai", "gpt-4")

	for i := 0; i < 5; i++ {
		reg.RecordFailure(key)
	}
	assert.Equal(t, StateOpen, reg.State(key))

	reg.RecordSuccess(key)
	assert.Equal(t, StateClosed, reg.State(key))
	assert.True(t, reg.Allow(key))
	assert.Equal(t, 0, reg.Snapshot()[key].Failures)
}

func TestRecoveryAfterCooldown(t *testing.T) {
	reg := newTestRegistry()
	key := Key("openai", "gpt-4")

	t0 := time.Now()
	reg.now = func() time.Time { return t0 }
	for i := 0; i < 5; i++ {
		reg.RecordFailure(key)
	}

	reg.now = func() time.Time { return t0.Add(29 * time.Second) }
	assert.False(t, reg.Allow(key))
	assert.Equal(t, StateOpen, reg.State(key))

	// At the cool-down boundary the breaker admits one probe.
	reg.now = func() time.Time { return t0.Add(30 * time.Second) }
	assert.True(t, reg.Allow(key))
	assert.Equal(t, StateHalfOpen, reg.State(key))
}

func TestHalfOpenFailureReopens(t *testing.T) {
	reg := newTestRegistry()
	key := Key("openai", "gpt-4")

	t0 := time.Now()
	reg.now = func() time.Time { return t0 }
	for i := 0; i < 5; i++ {
		reg.RecordFailure(key)
	}

	reg.now = func() time.Time { return t0.Add(31 * time.Second) }
	assert.True(t, reg.Allow(key))
	assert.Equal(t, StateHalfOpen, reg.State(key))

	reg.RecordFailure(key)
	assert.Equal(t, StateOpen, reg.State(key))
	assert.False(t, reg.Allow(key))
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	reg := newTestRegistry()
	key := Key("openai", "gpt-4")

	t0 := time.Now()
	reg.now = func() time.Time { return t0 }
	for i := 0; i < 5; i++ {
		reg.RecordFailure(key)
	}

	reg.now = func() time.Time { return t0.Add(31 * time.Second) }
	assert.True(t, reg.Allow(key))

	reg.RecordSuccess(key)
	assert.Equal(t, StateClosed, reg.State(key))
}

func TestKeysAreIsolated(t *testing.T) {
	reg := newTestRegistry()
	tripped := Key("openai", "gpt-4")
	other := Key("anthropic", "claude-3-opus")

	for i := 0; i < 5; i++ {
		reg.RecordFailure(tripped)
	}

	assert.False(t, reg.Allow(tripped))
	assert.True(t, reg.Allow(other))
	assert.Equal(t, StateClosed, reg.State(other))
}

func TestSnapshot(t *testing.T) {
	reg := newTestRegistry()
	reg.RecordFailure(Key("openai", "gpt-4"))
	reg.RecordFailure(Key("openai", "gpt-4"))
	reg.RecordFailure(Key("google", "gemini-pro"))

	snapshot := reg.Snapshot()
	assert.Equal(t, Status{State: "closed", Failures: 2}, snapshot["openai:gpt-4"])
	assert.Equal(t, Status{State: "closed", Failures: 1}, snapshot["google:gemini-pro"])
}
