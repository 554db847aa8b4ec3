// Package resilience provides the building blocks for fault-tolerant
// access to an unreliable, rate-limited upstream API.
//
// # Patterns
//
// The package provides the following patterns:
//
//   - Circuit Breaker: tracks aggregate upstream health and short-circuits
//     requests during sustained failure, probing for recovery after a
//     cooldown.
//
//   - Retry Policy: decides whether and when to retry a failed attempt
//     using exponential backoff with jitter, bounded by attempt count and
//     error classification.
//
//   - Rate Limiter: bounds outbound request rate over a sliding time
//     window with FIFO fairness and bounded waits.
//
//   - Timeout: bounds an operation with an overall deadline.
//
// # Error taxonomy
//
// Errors are classified into kinds (retryable, fatal, rate-limited,
// circuit-open, timeout, not-found) via Classify. Retry decisions,
// breaker failure accounting, and caller-facing propagation all key off
// the classification, so no unclassified error crosses the package
// boundary.
//
// # Usage
//
// Each pattern can be used independently or composed:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitConfig{
//	    FailureThreshold: 3,
//	    Cooldown:         30 * time.Second,
//	})
//
//	policy := resilience.NewRetryPolicy(resilience.RetryConfig{
//	    MaxAttempts: 4,
//	    BaseDelay:   100 * time.Millisecond,
//	    MaxDelay:    5 * time.Second,
//	})
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    MaxRequests: 30,
//	    Window:      time.Second,
//	})
//
//	if err := cb.Allow(); err == nil {
//	    if err := rl.Acquire(ctx); err == nil {
//	        err = policy.Execute(ctx, callUpstream)
//	        if err != nil {
//	            cb.RecordFailure(err)
//	        } else {
//	            cb.RecordSuccess()
//	        }
//	    }
//	}
package resilience
