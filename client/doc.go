// Package client provides the resilient data access client for Bitcoin
// block headers and inscription content.
//
// # Fetch pipeline
//
// A Fetch runs through, in order:
//
//  1. Fresh cache check (skipped by ForceRefresh).
//  2. Circuit breaker check: when Open, live calls are skipped and the
//     stale cache is consulted instead.
//  3. Rate limiter: callers queue FIFO for a slot, bounded by MaxWait.
//  4. Concurrency cap on in-flight upstream calls.
//  5. The upstream call wrapped by the retry policy.
//  6. On success the value is cached and the breaker records a success;
//     on terminal failure the breaker records a failure and the stale
//     cache is the last resort before the error surfaces.
//
// Concurrent fetches for the same key are coalesced into one upstream
// call; every waiting caller shares its result. The shared call runs
// detached from any single caller's context so one cancellation cannot
// fail the rest.
//
// # Configuration
//
// Config carries every tunable and binds to BLOCKDATA_* environment
// variables via LoadConfig:
//
//	cfg, err := client.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c, err := client.New(cfg, client.NewHTTPFetcher(client.HTTPFetcherConfig{
//	    BaseURL: cfg.BaseURL,
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := c.Fetch(ctx, "830000")
package client
