package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{})

	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
	if cb.config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cb.config.FailureThreshold)
	}
	if cb.config.Cooldown != 30*time.Second {
		t.Errorf("Cooldown = %v, want 30s", cb.config.Cooldown)
	}
	if cb.config.SuccessThreshold != 1 {
		t.Errorf("SuccessThreshold = %d, want 1", cb.config.SuccessThreshold)
	}
	if cb.config.ProbeCount != 1 {
		t.Errorf("ProbeCount = %d, want 1", cb.config.ProbeCount)
	}
}

// fakeClock lets the tests drive the breaker's cooldown laziness directly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCircuitBreaker_OpensAtExactThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 3})
	testErr := errors.New("upstream down")

	for i := 0; i < 2; i++ {
		cb.RecordFailure(testErr)
		if cb.State() != StateClosed {
			t.Fatalf("after %d failures, state = %v, want closed", i+1, cb.State())
		}
	}

	cb.RecordFailure(testErr)
	if cb.State() != StateOpen {
		t.Errorf("after 3 failures, state = %v, want open", cb.State())
	}

	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() while open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 3})
	testErr := errors.New("flaky")

	cb.RecordFailure(testErr)
	cb.RecordFailure(testErr)
	cb.RecordSuccess()
	cb.RecordFailure(testErr)
	cb.RecordFailure(testErr)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed (success should reset the streak)", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		Now:              clock.Now,
	})

	cb.RecordFailure(errors.New("down"))
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	clock.Advance(59 * time.Second)
	if cb.State() != StateOpen {
		t.Errorf("before cooldown, state = %v, want open", cb.State())
	}

	clock.Advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Errorf("after cooldown, state = %v, want half-open", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		Now:              clock.Now,
	})

	cb.RecordFailure(errors.New("down"))
	clock.Advance(time.Minute)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() in half-open = %v", err)
	}
	cb.RecordFailure(errors.New("still down"))

	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open after half-open failure", cb.State())
	}

	// The reopen must start a fresh cooldown.
	clock.Advance(59 * time.Second)
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open (cooldown restarted)", cb.State())
	}
	clock.Advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Errorf("state = %v, want half-open", cb.State())
	}
}

func TestCircuitBreaker_SuccessThreshold(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		SuccessThreshold: 2,
		ProbeCount:       2,
		Now:              clock.Now,
	})

	cb.RecordFailure(errors.New("down"))
	clock.Advance(time.Minute)

	if err := cb.Allow(); err != nil {
		t.Fatalf("first probe rejected: %v", err)
	}
	cb.RecordSuccess()
	if cb.State() != StateHalfOpen {
		t.Errorf("after 1 of 2 successes, state = %v, want half-open", cb.State())
	}

	if err := cb.Allow(); err != nil {
		t.Fatalf("second probe rejected: %v", err)
	}
	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Errorf("after 2 successes, state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_ProbeBudget(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		ProbeCount:       1,
		Now:              clock.Now,
	})

	cb.RecordFailure(errors.New("down"))
	clock.Advance(time.Minute)

	if err := cb.Allow(); err != nil {
		t.Fatalf("first probe rejected: %v", err)
	}
	// Probe in flight; further calls must short-circuit.
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second Allow() = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_TransientErrorsDontTrip(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1})

	// Rate limits and timeouts say nothing about upstream health.
	cb.RecordFailure(ErrRateLimited)
	cb.RecordFailure(ErrTimeout)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_TransientErrorsDontClose(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		ProbeCount:       1,
		Now:              clock.Now,
	})

	cb.RecordFailure(errors.New("down"))
	clock.Advance(time.Minute)

	if err := cb.Allow(); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	// A timed-out trial call is no evidence of recovery; the circuit
	// must stay half-open rather than close.
	cb.RecordFailure(ErrTimeout)
	if cb.State() != StateHalfOpen {
		t.Fatalf("after timed-out trial, state = %v, want half-open", cb.State())
	}

	// The trial slot must be released so the next call gets through.
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after released slot = %v", err)
	}
	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Errorf("after real success, state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_TransientErrorsDontResetFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 3})
	testErr := errors.New("upstream down")

	cb.RecordFailure(testErr)
	cb.RecordFailure(testErr)
	cb.RecordFailure(ErrRateLimited)

	if got := cb.Snapshot().ConsecutiveFailures; got != 2 {
		t.Errorf("ConsecutiveFailures = %d, want 2 (rate limit must not reset the streak)", got)
	}

	cb.RecordFailure(testErr)
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open (third real failure trips)", cb.State())
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 2})
	testErr := errors.New("boom")

	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func(ctx context.Context) error {
			return testErr
		})
		if !errors.Is(err, testErr) {
			t.Errorf("Execute() error = %v, want %v", err, testErr)
		}
	}

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("op must not run while the circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() while open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, Cooldown: time.Hour})

	cb.RecordFailure(errors.New("down"))
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("after reset, state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	clock := newFakeClock()

	var mu sync.Mutex
	var transitions []struct{ from, to State }

	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		Now:              clock.Now,
		OnStateChange: func(from, to State) {
			mu.Lock()
			transitions = append(transitions, struct{ from, to State }{from, to})
			mu.Unlock()
		},
	})

	cb.RecordFailure(errors.New("down"))
	clock.Advance(time.Minute)
	_ = cb.State() // trigger the lazy open -> half-open edge
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	cb.RecordSuccess()

	mu.Lock()
	defer mu.Unlock()

	want := []struct{ from, to State }{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(transitions) != len(want) {
		t.Fatalf("got %d transitions, want %d: %v", len(transitions), len(want), transitions)
	}
	for i, tr := range transitions {
		if tr != want[i] {
			t.Errorf("transition %d = %v -> %v, want %v -> %v", i, tr.from, tr.to, want[i].from, want[i].to)
		}
	}
}

func TestCircuitBreaker_Snapshot(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 5})

	cb.RecordFailure(errors.New("a"))
	cb.RecordFailure(errors.New("b"))

	snap := cb.Snapshot()
	if snap.State != StateClosed {
		t.Errorf("Snapshot.State = %v, want closed", snap.State)
	}
	if snap.ConsecutiveFailures != 2 {
		t.Errorf("Snapshot.ConsecutiveFailures = %d, want 2", snap.ConsecutiveFailures)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
