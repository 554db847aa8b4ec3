package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// MaxRequests is the number of grants allowed per window.
	// Default: 10
	MaxRequests int

	// Window is the trailing window duration grants are counted over.
	// Default: 1 second
	Window time.Duration

	// MaxWait is the longest Acquire will block for a slot before
	// rejecting with ErrRateLimited.
	// Default: 1 second
	MaxWait time.Duration

	// Now is the clock. Inject a synthetic clock for tests.
	// Default: time.Now
	Now func() time.Time
}

// RateLimiter bounds outbound request rate over a sliding time window.
//
// A call is granted iff fewer than MaxRequests grants fall within the
// trailing Window. Acquire blocks in FIFO order so granted order matches
// arrival order; waits are bounded by MaxWait, after which the caller is
// rejected rather than silently dropped.
type RateLimiter struct {
	config RateLimiterConfig

	mu      sync.Mutex
	grants  []time.Time     // grant timestamps, ascending
	waiters []chan struct{} // FIFO queue of blocked acquirers
	penalty time.Time       // no grants before this instant (429 hint)
}

// NewRateLimiter creates a new sliding-window rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	// Apply defaults
	if config.MaxRequests <= 0 {
		config.MaxRequests = 10
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &RateLimiter{config: config}
}

// Allow reports whether a request is granted right now, without waiting.
// Waiters already queued keep their place; Allow never jumps the queue.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.waiters) > 0 {
		return false
	}
	return rl.grantLocked(rl.config.Now())
}

// Acquire blocks until a slot is granted, the context is cancelled, or
// MaxWait elapses. On a wait past MaxWait it returns ErrRateLimited.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	rl.mu.Lock()
	start := rl.config.Now()
	if len(rl.waiters) == 0 && rl.grantLocked(start) {
		rl.mu.Unlock()
		return nil
	}

	w := make(chan struct{}, 1)
	rl.waiters = append(rl.waiters, w)
	rl.mu.Unlock()

	deadline := start.Add(rl.config.MaxWait)

	for {
		rl.mu.Lock()
		now := rl.config.Now()
		isHead := len(rl.waiters) > 0 && rl.waiters[0] == w
		if isHead && rl.grantLocked(now) {
			rl.popHeadLocked()
			rl.mu.Unlock()
			return nil
		}

		// Only the head waiter sleeps toward the next free slot; the
		// rest sleep until signalled or out of budget.
		wake := deadline
		if isHead {
			if free := rl.nextFreeLocked(now); free.Before(wake) {
				wake = free
			}
		}
		rl.mu.Unlock()

		sleep := wake.Sub(now)
		if sleep < 0 {
			sleep = 0
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			rl.dropWaiter(w)
			return ctx.Err()

		case <-w:
			// Promoted to head; re-check.
			timer.Stop()

		case <-timer.C:
			if !rl.config.Now().Before(deadline) {
				// Budget spent: one final grant attempt, then reject.
				rl.mu.Lock()
				if len(rl.waiters) > 0 && rl.waiters[0] == w && rl.grantLocked(rl.config.Now()) {
					rl.popHeadLocked()
					rl.mu.Unlock()
					return nil
				}
				rl.dropWaiterLocked(w)
				rl.mu.Unlock()
				return ErrRateLimited
			}
		}
	}
}

// Execute runs the operation once a rate limit slot is acquired.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := rl.Acquire(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// Penalize pushes the next grant out by at least d. A cooperative hint
// wired to upstream 429 responses: the local window tightens instead of
// hammering an already throttled API.
func (rl *RateLimiter) Penalize(d time.Duration) {
	if d <= 0 {
		d = rl.config.Window
	}

	rl.mu.Lock()
	until := rl.config.Now().Add(d)
	if until.After(rl.penalty) {
		rl.penalty = until
	}
	rl.mu.Unlock()
}

// InFlight returns the number of grants inside the current window and the
// number of queued waiters.
func (rl *RateLimiter) InFlight() (grants, waiters int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.pruneLocked(rl.config.Now())
	return len(rl.grants), len(rl.waiters)
}

// grantLocked records a grant at now if the window has room and no
// penalty is in force. Caller must hold the lock.
func (rl *RateLimiter) grantLocked(now time.Time) bool {
	rl.pruneLocked(now)

	if rl.penalty.After(now) {
		return false
	}
	if len(rl.grants) >= rl.config.MaxRequests {
		return false
	}

	rl.grants = append(rl.grants, now)
	return true
}

// nextFreeLocked returns the earliest instant a grant could succeed.
// Caller must hold the lock; only meaningful after a failed grant.
func (rl *RateLimiter) nextFreeLocked(now time.Time) time.Time {
	free := now
	if len(rl.grants) >= rl.config.MaxRequests {
		free = rl.grants[0].Add(rl.config.Window)
	}
	if rl.penalty.After(free) {
		free = rl.penalty
	}
	return free
}

// pruneLocked drops grants that fell out of the trailing window.
// Caller must hold the lock.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-rl.config.Window)
	i := 0
	for i < len(rl.grants) && !rl.grants[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rl.grants = append(rl.grants[:0], rl.grants[i:]...)
	}
}

// popHeadLocked removes the head waiter and signals the next in line.
// Caller must hold the lock.
func (rl *RateLimiter) popHeadLocked() {
	rl.waiters = rl.waiters[1:]
	if len(rl.waiters) > 0 {
		select {
		case rl.waiters[0] <- struct{}{}:
		default:
		}
	}
}

// dropWaiter removes w from the queue, wherever it sits.
func (rl *RateLimiter) dropWaiter(w chan struct{}) {
	rl.mu.Lock()
	rl.dropWaiterLocked(w)
	rl.mu.Unlock()
}

func (rl *RateLimiter) dropWaiterLocked(w chan struct{}) {
	for i, q := range rl.waiters {
		if q == w {
			wasHead := i == 0
			rl.waiters = append(rl.waiters[:i], rl.waiters[i+1:]...)
			if wasHead && len(rl.waiters) > 0 {
				select {
				case rl.waiters[0] <- struct{}{}:
				default:
				}
			}
			return
		}
	}
}
