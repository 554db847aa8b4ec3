// Package health reports the data access layer's health for liveness
// and readiness probes.
//
// The central checker is ClientChecker, which derives status from the
// client's circuit breaker: Closed is healthy, HalfOpen is degraded
// (the client is probing upstream recovery and may serve stale data),
// Open is unhealthy. Cache counters are attached as details.
//
// # Usage
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register(health.NewClientChecker("blockdata", dataClient))
//
//	http.Handle("/healthz", health.LivenessHandler())
//	http.Handle("/readyz", health.ReadinessHandler(agg))
//	http.Handle("/health", health.DetailedHandler(agg))
package health
