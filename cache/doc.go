// Package cache provides a bounded in-memory store with LRU eviction and
// lazy TTL expiry.
//
// The store distinguishes fresh reads (Get) from stale reads (GetStale):
// an expired entry is a miss for Get but remains physically present so it
// can be served as a degraded fallback when live data is unavailable.
package cache
