// Package observe provides telemetry for block data fetching: structured
// JSON logging, OpenTelemetry metrics for fetch outcomes, and tracing of
// fetch operations.
//
// All primitives default to no-ops so the client works without any
// telemetry backend configured.
package observe
