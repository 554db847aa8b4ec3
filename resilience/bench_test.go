package resilience

import (
	"context"
	"testing"
	"time"
)

// BenchmarkCircuitBreaker_Execute_Closed measures happy path execution.
func BenchmarkCircuitBreaker_Execute_Closed(b *testing.B) {
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 100,
		Cooldown:         time.Minute,
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
	}
}

// BenchmarkCircuitBreaker_Allow measures the short-circuit check.
func BenchmarkCircuitBreaker_Allow(b *testing.B) {
	cb := NewCircuitBreaker(CircuitConfig{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Allow()
	}
}

// BenchmarkRetryPolicy_ShouldRetry measures the decision path.
func BenchmarkRetryPolicy_ShouldRetry(b *testing.B) {
	p := NewRetryPolicy(RetryConfig{MaxAttempts: 5})
	err := NewStatusError(503, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.ShouldRetry(1, err)
	}
}

// BenchmarkRateLimiter_Allow measures grant bookkeeping under a wide window.
func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{
		MaxRequests: 1 << 20,
		Window:      time.Microsecond,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rl.Allow()
	}
}

// BenchmarkClassify measures error classification.
func BenchmarkClassify(b *testing.B) {
	err := NewStatusError(500, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Classify(err)
	}
}

// BenchmarkRateLimiter_Concurrent measures contended grants.
func BenchmarkRateLimiter_Concurrent(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{
		MaxRequests: 1 << 20,
		Window:      time.Microsecond,
	})

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = rl.Allow()
		}
	})
}
