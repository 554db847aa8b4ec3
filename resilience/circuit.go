package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is probing whether the upstream
	// recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitConfig configures the circuit breaker.
type CircuitConfig struct {
	// FailureThreshold is the number of consecutive failures before
	// opening the circuit.
	// Default: 5
	FailureThreshold int

	// Cooldown is how long the circuit stays open before probing.
	// Default: 30 seconds
	Cooldown time.Duration

	// SuccessThreshold is the number of half-open successes required to
	// close the circuit.
	// Default: 1
	SuccessThreshold int

	// ProbeCount is the max concurrent trial calls allowed in half-open.
	// Default: 1
	ProbeCount int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count as a failure.
	// Errors it rejects are neutral: they count neither toward tripping
	// nor toward recovery. Only a nil error counts as a success.
	// Default: all non-nil errors except rate limits and timeouts, which
	// are transient and say nothing about upstream health.
	IsFailure func(err error) bool

	// Now is the clock. Inject a synthetic clock for tests.
	// Default: time.Now
	Now func() time.Time
}

// CircuitBreaker tracks aggregate upstream health across calls and
// short-circuits requests during sustained failure. It is keyed per
// upstream endpoint, not per request key.
//
// Cooldown expiry is evaluated lazily on each call from the clock; no
// background timers are held.
type CircuitBreaker struct {
	config CircuitConfig

	mu                sync.Mutex
	state             State
	failures          int
	openedAt          time.Time
	halfOpenSuccesses int
	halfOpenInFlight  int
}

// NewCircuitBreaker creates a new circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.ProbeCount <= 0 {
		config.ProbeCount = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool {
			if err == nil {
				return false
			}
			switch Classify(err) {
			case KindRateLimited, KindTimeout:
				return false
			}
			return true
		}
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Allow reports whether a call may proceed. It returns ErrCircuitOpen when
// the circuit is open or the half-open probe budget is spent. A nil return
// in half-open reserves a probe slot; the caller must follow up with
// RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.config.ProbeCount {
			return ErrCircuitOpen
		}
		cb.halfOpenInFlight++
	}
	return nil
}

// RecordSuccess reports a successful call outcome.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.record(nil)
}

// RecordFailure reports a failed call outcome.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.record(err)
}

// record folds one call outcome into the breaker. Outcomes are
// three-valued: a nil error is a success, an error IsFailure accepts is
// a failure, and any other error is neutral. Neutral outcomes release
// the probe slot but move no counters; an exempt error such as a local
// timeout or a rate limit is evidence of neither failure nor recovery.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isFailure := cb.config.IsFailure(err)
	isSuccess := err == nil
	oldState := cb.currentStateLocked()

	switch oldState {
	case StateClosed:
		if isFailure {
			cb.failures++
			if cb.failures >= cb.config.FailureThreshold {
				cb.state = StateOpen
				cb.openedAt = cb.config.Now()
			}
		} else if isSuccess {
			// Success resets the consecutive-failure count so sparse,
			// unrelated failures never accumulate into a trip.
			cb.failures = 0
		}

	case StateHalfOpen:
		if cb.halfOpenInFlight > 0 {
			cb.halfOpenInFlight--
		}
		if isFailure {
			// Failed probe: reopen with a fresh cooldown.
			cb.state = StateOpen
			cb.openedAt = cb.config.Now()
			cb.halfOpenSuccesses = 0
		} else if isSuccess {
			cb.halfOpenSuccesses++
			if cb.halfOpenSuccesses >= cb.config.SuccessThreshold {
				cb.state = StateClosed
				cb.failures = 0
				cb.halfOpenSuccesses = 0
			}
		}
	}

	if oldState != cb.state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, cb.state)
	}
}

// Execute runs the operation through the circuit breaker, reporting its
// outcome. Prefer Allow/RecordSuccess/RecordFailure when the outcome of a
// larger unit of work (e.g. a fully retried fetch) should count as one.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.Allow(); err != nil {
		return err
	}

	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenSuccesses = 0
	cb.halfOpenInFlight = 0

	if oldState != StateClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, StateClosed)
	}
}

// currentStateLocked applies the lazy open -> half-open transition.
// Caller must hold the lock.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.Cooldown {
		cb.state = StateHalfOpen
		cb.halfOpenSuccesses = 0
		cb.halfOpenInFlight = 0
		if cb.config.OnStateChange != nil {
			cb.config.OnStateChange(StateOpen, StateHalfOpen)
		}
	}
	return cb.state
}

// Snapshot is a point-in-time view of the breaker for introspection.
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	OpenedAt            time.Time
	HalfOpenSuccesses   int
}

// Snapshot returns the current breaker state and counters.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Snapshot{
		State:               cb.currentStateLocked(),
		ConsecutiveFailures: cb.failures,
		OpenedAt:            cb.openedAt,
		HalfOpenSuccesses:   cb.halfOpenSuccesses,
	}
}
