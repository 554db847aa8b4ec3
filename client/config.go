package client

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every tunable of the client and its internal
// components. The zero value is not usable; start from DefaultConfig
// or LoadConfig.
type Config struct {
	// BaseURL is the upstream endpoint base, resolved per environment.
	BaseURL string `env:"BLOCKDATA_BASE_URL" envDefault:"https://ordinals.com"`

	// MaxEntries bounds the cache.
	MaxEntries int `env:"BLOCKDATA_CACHE_MAX_ENTRIES" envDefault:"1000"`

	// DefaultTTL is the cache entry lifetime when Fetch is not given one.
	DefaultTTL time.Duration `env:"BLOCKDATA_CACHE_TTL" envDefault:"5m"`

	// MaxAttempts bounds retries, including the initial attempt.
	MaxAttempts int `env:"BLOCKDATA_RETRY_MAX_ATTEMPTS" envDefault:"3"`

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration `env:"BLOCKDATA_RETRY_BASE_DELAY" envDefault:"100ms"`

	// MaxDelay caps exponential backoff.
	MaxDelay time.Duration `env:"BLOCKDATA_RETRY_MAX_DELAY" envDefault:"30s"`

	// JitterFactor is the uniform jitter fraction added to each backoff
	// delay. Negative disables jitter.
	JitterFactor float64 `env:"BLOCKDATA_RETRY_JITTER" envDefault:"0.25"`

	// FailureThreshold is the consecutive failures that open the circuit.
	FailureThreshold int `env:"BLOCKDATA_CIRCUIT_FAILURE_THRESHOLD" envDefault:"5"`

	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration `env:"BLOCKDATA_CIRCUIT_COOLDOWN" envDefault:"30s"`

	// SuccessThreshold is the half-open successes required to close.
	SuccessThreshold int `env:"BLOCKDATA_CIRCUIT_SUCCESS_THRESHOLD" envDefault:"1"`

	// MaxRequests is the rate limit per sliding window.
	MaxRequests int `env:"BLOCKDATA_RATE_MAX_REQUESTS" envDefault:"10"`

	// Window is the sliding window the rate limit is counted over.
	Window time.Duration `env:"BLOCKDATA_RATE_WINDOW" envDefault:"1s"`

	// MaxWait is the longest a fetch queues for a rate limit slot.
	MaxWait time.Duration `env:"BLOCKDATA_RATE_MAX_WAIT" envDefault:"1s"`

	// MaxConcurrent caps in-flight upstream calls.
	MaxConcurrent int `env:"BLOCKDATA_MAX_CONCURRENT" envDefault:"10"`

	// FetchTimeout is the overall deadline for one live fetch, covering
	// queueing, all retry attempts, and backoff waits.
	FetchTimeout time.Duration `env:"BLOCKDATA_FETCH_TIMEOUT" envDefault:"30s"`

	// AttemptTimeout bounds a single upstream attempt. A stalled attempt
	// is abandoned and retried while the overall budget lasts.
	AttemptTimeout time.Duration `env:"BLOCKDATA_ATTEMPT_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "https://ordinals.com",
		MaxEntries:       1000,
		DefaultTTL:       5 * time.Minute,
		MaxAttempts:      3,
		BaseDelay:        100 * time.Millisecond,
		MaxDelay:         30 * time.Second,
		JitterFactor:     0.25,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		SuccessThreshold: 1,
		MaxRequests:      10,
		Window:           time.Second,
		MaxWait:          time.Second,
		MaxConcurrent:    10,
		FetchTimeout:     30 * time.Second,
		AttemptTimeout:   10 * time.Second,
	}
}

// LoadConfig reads configuration from BLOCKDATA_* environment
// variables, falling back to the documented defaults.
func LoadConfig() (Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate fails fast on bounds that would disable a safety mechanism.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: BaseURL must be set")
	}
	if c.MaxEntries <= 0 {
		return fmt.Errorf("config: MaxEntries must be positive, got %d", c.MaxEntries)
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("config: DefaultTTL must be positive, got %s", c.DefaultTTL)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("config: MaxAttempts must be positive, got %d", c.MaxAttempts)
	}
	if c.BaseDelay <= 0 {
		return fmt.Errorf("config: BaseDelay must be positive, got %s", c.BaseDelay)
	}
	if c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("config: MaxDelay %s is below BaseDelay %s", c.MaxDelay, c.BaseDelay)
	}
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("config: FailureThreshold must be positive, got %d", c.FailureThreshold)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("config: Cooldown must be positive, got %s", c.Cooldown)
	}
	if c.SuccessThreshold <= 0 {
		return fmt.Errorf("config: SuccessThreshold must be positive, got %d", c.SuccessThreshold)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("config: MaxRequests must be positive, got %d", c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("config: Window must be positive, got %s", c.Window)
	}
	if c.MaxWait < 0 {
		return fmt.Errorf("config: MaxWait must not be negative, got %s", c.MaxWait)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("config: MaxConcurrent must be positive, got %d", c.MaxConcurrent)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("config: FetchTimeout must be positive, got %s", c.FetchTimeout)
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("config: AttemptTimeout must be positive, got %s", c.AttemptTimeout)
	}
	return nil
}
