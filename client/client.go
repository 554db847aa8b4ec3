package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/BTCEnoch/blockdata/cache"
	"github.com/BTCEnoch/blockdata/observe"
	"github.com/BTCEnoch/blockdata/resilience"
)

// Client is the consumer-facing access layer over the upstream data
// source. Every Fetch runs through the cache first, then a circuit
// breaker, rate limiter, concurrency cap, and retry policy, falling
// back to stale cached data when live data is unavailable.
//
// A Client is safe for concurrent use. Concurrent fetches for the same
// key are coalesced into a single upstream call whose result all
// callers share.
type Client struct {
	config  Config
	fetcher Fetcher

	store    *cache.Store
	breaker  *resilience.CircuitBreaker
	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead
	retry    *resilience.RetryPolicy
	attempt  *resilience.Timeout

	flight singleflight.Group

	logger  observe.Logger
	metrics observe.Metrics
	tracer  observe.Tracer
	clock   func() time.Time
	rand    *rand.Rand
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithLogger sets the logger. Default: no-op.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observe.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracer sets the tracer. Default: no-op.
func WithTracer(t observe.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithClock sets the clock used by the cache, circuit breaker, and
// rate limiter. Inject a synthetic clock for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.clock = now }
}

// WithRand sets the retry jitter source. Inject a seeded generator for
// deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(c *Client) { c.rand = r }
}

// New creates a client from config and an upstream fetcher.
func New(config Config, fetcher Fetcher, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, errors.New("client: fetcher must not be nil")
	}

	c := &Client{
		config:  config,
		fetcher: fetcher,
		logger:  observe.NewNopLogger(),
		metrics: observe.NewNopMetrics(),
		tracer:  observe.NewNopTracer(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.store = cache.New(cache.Config{
		MaxEntries: config.MaxEntries,
		DefaultTTL: config.DefaultTTL,
		Now:        c.clock,
	})
	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitConfig{
		FailureThreshold: config.FailureThreshold,
		Cooldown:         config.Cooldown,
		SuccessThreshold: config.SuccessThreshold,
		Now:              c.clock,
		OnStateChange: func(from, to resilience.State) {
			c.logger.Warn(context.Background(), "circuit state changed",
				observe.F("from", from.String()),
				observe.F("to", to.String()))
		},
	})
	c.limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
		MaxRequests: config.MaxRequests,
		Window:      config.Window,
		MaxWait:     config.MaxWait,
		Now:         c.clock,
	})
	c.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		MaxConcurrent: config.MaxConcurrent,
		MaxWait:       config.MaxWait,
	})
	c.attempt = resilience.NewTimeout(resilience.TimeoutConfig{
		Limit: config.AttemptTimeout,
	})
	c.retry = resilience.NewRetryPolicy(resilience.RetryConfig{
		MaxAttempts:  config.MaxAttempts,
		BaseDelay:    config.BaseDelay,
		MaxDelay:     config.MaxDelay,
		JitterFactor: config.JitterFactor,
		Rand:         c.rand,
		Classify:     classifyAttempt,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.logger.Debug(context.Background(), "retrying fetch",
				observe.F("attempt", attempt),
				observe.F("delay", delay.String()),
				observe.F("error", err.Error()))
		},
		// Upstream told us to slow down; tighten the local window too.
		OnRateLimited: c.limiter.Penalize,
	})

	return c, nil
}

// fetchOptions are the per-call knobs.
type fetchOptions struct {
	forceRefresh bool
	timeout      time.Duration
	ttl          time.Duration
}

// FetchOption customizes one Fetch call.
type FetchOption func(*fetchOptions)

// ForceRefresh bypasses the fresh-cache check so the value is fetched
// live. Stale fallback still applies if the live fetch fails.
func ForceRefresh() FetchOption {
	return func(o *fetchOptions) { o.forceRefresh = true }
}

// WithTimeout overrides the overall deadline for this call. It bounds
// how long this caller waits; a coalesced upstream call shared with
// other callers keeps running under the client-wide deadline.
func WithTimeout(d time.Duration) FetchOption {
	return func(o *fetchOptions) { o.timeout = d }
}

// WithTTL overrides the cache lifetime for the fetched value.
func WithTTL(d time.Duration) FetchOption {
	return func(o *fetchOptions) { o.ttl = d }
}

// Fetch returns the value for key, preferring fresh cache, then the
// network, then stale cache. The returned Result says which of those
// served it.
//
// Fetch blocks while queued on the rate limiter and during retry
// backoff, bounded by the call's timeout. Concurrent calls for the
// same key share one upstream request.
func (c *Client) Fetch(ctx context.Context, key string, opts ...FetchOption) (Result, error) {
	options := fetchOptions{
		timeout: c.config.FetchTimeout,
		ttl:     c.config.DefaultTTL,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := cache.ValidateKey(key); err != nil {
		return Result{}, err
	}

	start := c.clock()
	ctx, span := c.tracer.StartSpan(ctx, key)

	res, err := c.fetch(ctx, key, options)

	elapsed := c.clock().Sub(start)
	c.metrics.RecordFetch(ctx, res.Source.String(), elapsed, err)
	c.tracer.EndSpan(span, res.Source.String(), err)
	if err != nil {
		c.logger.Error(ctx, "fetch failed",
			observe.F("key", key),
			observe.F("error", err.Error()))
	}
	return res, err
}

func (c *Client) fetch(ctx context.Context, key string, options fetchOptions) (Result, error) {
	if !options.forceRefresh {
		if v, ok := c.store.Get(key); ok {
			return Result{Value: v.(Value), Source: SourceCache}, nil
		}
	}

	// Coalesce concurrent fetches for the same key into one live call.
	// The call runs detached from this caller's context so one caller's
	// cancellation cannot fail the others; the client-wide FetchTimeout
	// still bounds it.
	ch := c.flight.DoChan(key, func() (any, error) {
		liveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.FetchTimeout)
		defer cancel()
		return c.fetchLive(liveCtx, key, options.ttl)
	})

	timer := time.NewTimer(options.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	case <-ctx.Done():
		return Result{}, fmt.Errorf("fetching %q: %w", key, ctx.Err())
	case <-timer.C:
		return Result{}, fmt.Errorf("fetching %q: %w", key, resilience.ErrTimeout)
	}
}

// fetchLive performs one logical live fetch: circuit check, rate limit,
// concurrency cap, then the retried upstream call. The breaker records
// one outcome per logical fetch, not per attempt.
func (c *Client) fetchLive(ctx context.Context, key string, ttl time.Duration) (Result, error) {
	if c.breaker.State() == resilience.StateOpen {
		return c.staleOr(ctx, key, fmt.Errorf("fetching %q: %w", key, resilience.ErrCircuitOpen))
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return c.staleOr(ctx, key, fmt.Errorf("fetching %q: %w", key, err))
	}
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return c.staleOr(ctx, key, fmt.Errorf("fetching %q: %w", key, err))
	}
	defer c.bulkhead.Release()

	// The breaker may have opened, or needs this call as a half-open
	// probe; reserve the slot only once we are actually about to call.
	if err := c.breaker.Allow(); err != nil {
		return c.staleOr(ctx, key, fmt.Errorf("fetching %q: %w", key, err))
	}

	// An abandoned attempt's goroutine may still complete after its
	// sub-deadline fired, so writes to value are locked.
	var mu sync.Mutex
	var value Value
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.attempt.Execute(ctx, func(ctx context.Context) error {
			v, err := c.fetcher.Fetch(ctx, key)
			if err != nil {
				return err
			}
			mu.Lock()
			value = v
			mu.Unlock()
			return nil
		})
	})
	if err != nil {
		c.breaker.RecordFailure(err)
		return c.staleOr(ctx, key, fmt.Errorf("fetching %q: %w", key, err))
	}

	c.breaker.RecordSuccess()
	mu.Lock()
	result := value
	mu.Unlock()
	c.store.Put(key, result, ttl)
	return Result{Value: result, Source: SourceNetwork}, nil
}

// classifyAttempt treats a single stalled attempt as retryable: the
// attempt ran under its own sub-deadline, so a fresh attempt is
// meaningful while the overall fetch budget lasts. Everything else
// classifies as usual.
func classifyAttempt(err error) resilience.Kind {
	if errors.Is(err, resilience.ErrTimeout) {
		return resilience.KindRetryable
	}
	return resilience.Classify(err)
}

// staleOr serves the expired cached value for key if one survives,
// otherwise propagates cause.
func (c *Client) staleOr(ctx context.Context, key string, cause error) (Result, error) {
	v, ok := c.store.GetStale(key)
	if !ok {
		return Result{}, cause
	}
	c.logger.Warn(ctx, "serving stale value",
		observe.F("key", key),
		observe.F("cause", cause.Error()))
	return Result{Value: v.(Value), Source: SourceStaleFallback}, nil
}

// Invalidate drops the cached value for key, if any.
func (c *Client) Invalidate(key string) {
	c.store.Invalidate(key)
}

// ClearCache drops every cached value. Counters are preserved.
func (c *Client) ClearCache() {
	c.store.Clear()
}

// CacheStats reports cache hit/miss/size counters.
func (c *Client) CacheStats() cache.Stats {
	return c.store.Stats()
}

// CircuitState reports the circuit breaker's current state.
func (c *Client) CircuitState() resilience.Snapshot {
	return c.breaker.Snapshot()
}
