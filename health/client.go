package health

import (
	"context"
	"fmt"

	"github.com/BTCEnoch/blockdata/cache"
	"github.com/BTCEnoch/blockdata/resilience"
)

// DataClient is the slice of the client surface the checker needs.
type DataClient interface {
	CircuitState() resilience.Snapshot
	CacheStats() cache.Stats
}

// ClientChecker reports the data client's health from its circuit
// breaker state: a closed circuit is healthy, a half-open circuit is
// degraded (probing recovery), an open circuit is unhealthy. Cache
// counters ride along in Details.
type ClientChecker struct {
	name   string
	client DataClient
}

// NewClientChecker creates a checker for a data client.
func NewClientChecker(name string, client DataClient) *ClientChecker {
	if name == "" {
		name = "blockdata"
	}
	return &ClientChecker{name: name, client: client}
}

// Name returns the name of this checker.
func (c *ClientChecker) Name() string {
	return c.name
}

// Check reports health derived from the circuit breaker and cache.
func (c *ClientChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	circuit := c.client.CircuitState()
	stats := c.client.CacheStats()

	details := map[string]any{
		"circuit_state":        circuit.State.String(),
		"consecutive_failures": circuit.ConsecutiveFailures,
		"cache_size":           stats.Size,
		"cache_hits":           stats.Hits,
		"cache_misses":         stats.Misses,
		"cache_evictions":      stats.Evictions,
	}

	switch circuit.State {
	case resilience.StateOpen:
		return Unhealthy(
			fmt.Sprintf("upstream unavailable since %s", circuit.OpenedAt.UTC().Format("2006-01-02T15:04:05Z")),
			resilience.ErrCircuitOpen,
		).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("probing upstream recovery").WithDetails(details)
	default:
		return Healthy("upstream reachable").WithDetails(details)
	}
}
