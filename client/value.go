package client

// Value is the application data fetched for one key: block header fields
// for a height or hash lookup, or opaque inscription content.
type Value struct {
	Height    int64  `json:"height,omitempty"`
	Hash      string `json:"hash,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Nonce     uint32 `json:"nonce,omitempty"`
	Content   []byte `json:"content,omitempty"`
}

// Source identifies where a fetch result came from.
type Source int

const (
	// SourceNone means no value was produced (error result).
	SourceNone Source = iota
	// SourceCache means the value was served fresh from the cache.
	SourceCache
	// SourceNetwork means the value came from a live upstream call.
	SourceNetwork
	// SourceStaleFallback means an expired cached value was served
	// because live data was unavailable.
	SourceStaleFallback
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceNetwork:
		return "network"
	case SourceStaleFallback:
		return "stale-fallback"
	default:
		return "none"
	}
}

// Result is the outcome of one logical fetch.
type Result struct {
	Value  Value
	Source Source
}
