package resilience

import (
	"context"
	"errors"
	"time"
)

// TimeoutConfig configures the per-attempt deadline.
type TimeoutConfig struct {
	// Limit is the maximum duration for a single attempt.
	// Default: 30 seconds
	Limit time.Duration
}

// Timeout bounds each upstream attempt with its own deadline so one hung
// call cannot eat the caller's whole budget. When the deadline fires the
// in-flight attempt is abandoned, not awaited; the attempt's context is
// cancelled so a well-behaved op can still bail out on its own.
type Timeout struct {
	limit time.Duration
}

// NewTimeout creates a per-attempt deadline wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	limit := config.Limit
	if limit <= 0 {
		limit = 30 * time.Second
	}
	return &Timeout{limit: limit}
}

// Execute runs op under the attempt deadline. Expiry of this wrapper's
// own deadline returns ErrTimeout; cancellation or an earlier deadline
// inherited from the parent context is reported as-is, so callers can
// tell "this attempt stalled, try another" from "the caller gave up".
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeoutCause(ctx, t.limit, ErrTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(attemptCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		cause := context.Cause(attemptCtx)
		if errors.Is(cause, ErrTimeout) {
			return ErrTimeout
		}
		return cause
	}
}

// Limit reports the configured per-attempt deadline.
func (t *Timeout) Limit() time.Duration {
	return t.limit
}
