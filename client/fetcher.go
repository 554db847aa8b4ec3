package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BTCEnoch/blockdata/resilience"
)

// Fetcher retrieves the value for a key from the upstream source. One
// call corresponds to one network attempt; retries, rate limiting and
// circuit breaking happen above this boundary.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (Value, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, key string) (Value, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, key string) (Value, error) {
	return f(ctx, key)
}

// HTTPFetcherConfig configures the HTTP fetcher.
type HTTPFetcherConfig struct {
	// BaseURL is the upstream endpoint base. The environment decides
	// dev vs production; the fetcher only joins paths onto it.
	// Default: https://ordinals.com
	BaseURL string

	// HTTPClient is the HTTP client to use for requests.
	// If nil, a default client with 30s timeout is used.
	HTTPClient *http.Client
}

// HTTPFetcher fetches block headers and inscription content over HTTP.
//
// Numeric keys are treated as block heights and resolved against
// /r/blockinfo/{height}; all other keys are treated as inscription ids
// and resolved against /content/{id}.
type HTTPFetcher struct {
	config HTTPFetcherConfig
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(config HTTPFetcherConfig) *HTTPFetcher {
	// Apply defaults
	if config.BaseURL == "" {
		config.BaseURL = "https://ordinals.com"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &HTTPFetcher{config: config}
}

// Fetch performs one upstream request for key.
func (f *HTTPFetcher) Fetch(ctx context.Context, key string) (Value, error) {
	if _, err := strconv.ParseInt(key, 10, 64); err == nil {
		return f.fetchBlock(ctx, key)
	}
	return f.fetchContent(ctx, key)
}

// blockInfo mirrors the upstream block info response body.
type blockInfo struct {
	Height    int64  `json:"height"`
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"`
	Nonce     uint32 `json:"nonce"`
}

func (f *HTTPFetcher) fetchBlock(ctx context.Context, height string) (Value, error) {
	body, err := f.get(ctx, "/r/blockinfo/"+url.PathEscape(height))
	if err != nil {
		return Value{}, err
	}

	var info blockInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return Value{}, fmt.Errorf("%w: decoding block info: %v", resilience.ErrMalformed, err)
	}
	if info.Hash == "" {
		return Value{}, fmt.Errorf("%w: block info missing hash", resilience.ErrMalformed)
	}

	return Value{
		Height:    info.Height,
		Hash:      info.Hash,
		Timestamp: info.Timestamp,
		Nonce:     info.Nonce,
	}, nil
}

func (f *HTTPFetcher) fetchContent(ctx context.Context, id string) (Value, error) {
	body, err := f.get(ctx, "/content/"+url.PathEscape(id))
	if err != nil {
		return Value{}, err
	}
	return Value{Content: body}, nil
}

// get issues one GET and maps non-2xx statuses into StatusError so the
// retry policy can classify them.
func (f *HTTPFetcher) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		err := resilience.NewStatusError(resp.StatusCode,
			fmt.Errorf("fetching %s: unexpected status %d", path, resp.StatusCode))
		if resp.StatusCode == http.StatusTooManyRequests {
			if hint := parseRetryAfter(resp.Header.Get("Retry-After")); hint > 0 {
				return nil, &retryAfterError{err: err, after: hint}
			}
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	return body, nil
}

// retryAfterError carries an upstream Retry-After hint alongside the
// status error it decorates.
type retryAfterError struct {
	err   error
	after time.Duration
}

func (e *retryAfterError) Error() string             { return e.err.Error() }
func (e *retryAfterError) Unwrap() error             { return e.err }
func (e *retryAfterError) RetryAfter() time.Duration { return e.after }

// parseRetryAfter parses a Retry-After header value. Only the
// delta-seconds form is honored; HTTP-date values are ignored.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
