package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimited is returned when a request exceeds the rate limit.
	ErrRateLimited = errors.New("resilience: rate limit exceeded")

	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrNotFound is returned when a key has no value and no fallback.
	ErrNotFound = errors.New("resilience: not found")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrMalformed is returned when an upstream response cannot be
	// decoded. Malformed responses are never retried.
	ErrMalformed = errors.New("resilience: malformed response")
)

// Kind classifies an error for retry and propagation decisions.
type Kind int

const (
	// KindRetryable covers transient network and server errors.
	KindRetryable Kind = iota
	// KindFatal covers client, auth, and malformed-response errors.
	// Fatal errors are never retried.
	KindFatal
	// KindRateLimited covers upstream 429s and local throttling.
	KindRateLimited
	// KindCircuitOpen covers breaker short-circuits.
	KindCircuitOpen
	// KindTimeout covers overall deadline expiry.
	KindTimeout
	// KindNotFound covers a miss with no fallback available.
	KindNotFound
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindFatal:
		return "fatal"
	case KindRateLimited:
		return "rate-limited"
	case KindCircuitOpen:
		return "circuit-open"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// StatusError wraps an error with the HTTP status code of the upstream
// response that produced it.
type StatusError struct {
	Code int
	Err  error
}

// NewStatusError creates a StatusError for the given status code.
// If err is nil a generic message is synthesized from the code.
func NewStatusError(code int, err error) error {
	if err == nil {
		err = fmt.Errorf("upstream status %d", code)
	}
	return &StatusError{Code: code, Err: err}
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return e.Err.Error()
}

// Unwrap supports errors.Is and errors.As.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code.
func (e *StatusError) StatusCode() int {
	return e.Code
}

// Classify maps an error to its Kind. A nil error classifies as
// KindRetryable; callers are expected to check for nil before asking.
//
// Context cancellation and deadline expiry classify as timeouts: retrying
// with the same context would fail immediately. Errors carrying no status
// code are assumed transient (connection resets, DNS failures).
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindRetryable
	case errors.Is(err, ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrBulkheadFull):
		return KindRateLimited
	case errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrMalformed):
		return KindFatal
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusTooManyRequests:
			return KindRateLimited
		case se.Code == http.StatusRequestTimeout:
			return KindRetryable
		case se.Code >= 500:
			return KindRetryable
		case se.Code == http.StatusNotFound:
			return KindNotFound
		case se.Code >= 400:
			return KindFatal
		}
	}

	return KindRetryable
}

// Retryable reports whether the error's classification permits a retry.
// Retryable and rate-limited errors may be retried; everything else is
// terminal for the current call.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindRetryable, KindRateLimited:
		return true
	default:
		return false
	}
}
