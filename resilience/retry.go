package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry policy.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	// Default: 100ms
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// JitterFactor is the fraction of the delay added as uniform random
	// jitter, to avoid synchronized retry storms across callers.
	// Set negative to disable jitter. Default: 0.25
	JitterFactor float64

	// Classify maps an error to a Kind. Default: Classify.
	Classify func(err error) Kind

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)

	// OnRateLimited is called when an attempt fails with a rate-limited
	// classification. The client wires this to RateLimiter.Penalize so an
	// upstream 429 tightens the local window.
	OnRateLimited func(hint time.Duration)

	// Rand is the jitter source. Inject a seeded generator for
	// deterministic tests. Default: a PCG seeded from the clock.
	Rand *rand.Rand
}

// Decision is the outcome of consulting the retry policy for one failure.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// RetryPolicy computes whether and when to retry a failed attempt using
// exponential backoff with jitter, bounded by attempt count and error
// classification. Attempt counts are per logical call; no state is kept
// between calls.
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy creates a new retry policy.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	// Apply defaults
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.JitterFactor < 0 {
		config.JitterFactor = 0
	} else if config.JitterFactor == 0 {
		config.JitterFactor = 0.25
	}
	if config.Classify == nil {
		config.Classify = Classify
	}
	if config.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		config.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}

	return &RetryPolicy{config: config}
}

// ShouldRetry decides whether the given failed attempt may be retried and
// after what delay. attempt is 1-based. Fatal classifications and the
// final attempt never retry.
func (p *RetryPolicy) ShouldRetry(attempt int, err error) Decision {
	if err == nil || attempt >= p.config.MaxAttempts {
		return Decision{}
	}

	switch p.config.Classify(err) {
	case KindRetryable, KindRateLimited:
		return Decision{Retry: true, Delay: p.backoff(attempt)}
	default:
		return Decision{}
	}
}

// Execute runs op, retrying per the policy. Only the final attempt's error
// is surfaced; backoff waits abort on context cancellation.
func (p *RetryPolicy) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if p.config.Classify(err) == KindRateLimited && p.config.OnRateLimited != nil {
			p.config.OnRateLimited(retryAfterHint(err))
		}

		decision := p.ShouldRetry(attempt, err)
		if !decision.Retry {
			break
		}

		if p.config.OnRetry != nil {
			p.config.OnRetry(attempt, err, decision.Delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(decision.Delay):
		}
	}

	return lastErr
}

// backoff computes min(BaseDelay * 2^(attempt-1), MaxDelay) plus uniform
// jitter in [0, delay*JitterFactor].
func (p *RetryPolicy) backoff(attempt int) time.Duration {
	multiplier := math.Pow(2, float64(attempt-1))
	delay := time.Duration(float64(p.config.BaseDelay) * multiplier)

	if delay > p.config.MaxDelay || delay <= 0 {
		delay = p.config.MaxDelay
	}

	if p.config.JitterFactor > 0 {
		span := int64(float64(delay) * p.config.JitterFactor)
		if span > 0 {
			// #nosec G404 -- jitter is non-cryptographic timing variance.
			delay += time.Duration(p.config.Rand.Int64N(span))
		}
	}

	return delay
}

// Config returns the retry configuration.
func (p *RetryPolicy) Config() RetryConfig {
	return p.config
}

// retryAfterHint extracts an upstream cooldown hint from a rate-limited
// error, if one was recorded by the transport.
func retryAfterHint(err error) time.Duration {
	var ra interface{ RetryAfter() time.Duration }
	if errors.As(err, &ra) {
		return ra.RetryAfter()
	}
	return 0
}
