package middleware

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the resilience settings of the HTTP pipeline. It is read from
// the "server" section next to the listener settings.
type Config struct {
	Timeout        TimeoutConfig        `mapstructure:"timeout"`
	RateLimit      RateLimitConfig      `mapstructure:"rate-limit"`
	Bulkhead       BulkheadConfig       `mapstructure:"bulkhead"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit-breaker"`
}

type TimeoutConfig struct {
	Enabled        *bool         `mapstructure:"enabled"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

type RateLimitConfig struct {
	Enabled           *bool `mapstructure:"enabled"`
	RequestsPerSecond int   `mapstructure:"requests-per-second"`
	Burst             int   `mapstructure:"burst"`
}

type BulkheadConfig struct {
	Enabled       *bool         `mapstructure:"enabled"`
	MaxConcurrent int           `mapstructure:"max-concurrent"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type CircuitBreakerConfig struct {
	Enabled          *bool         `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure-threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Interval         time.Duration `mapstructure:"interval"`
	MaxRequests      uint32        `mapstructure:"max-requests"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("server"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load server middleware config: %w", err)
		}
	}
	cfg.setDefaults()
	return cfg, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func enabled(b *bool) bool {
	return b != nil && *b
}

func (c *Config) setDefaults() {
	if c.Timeout.Enabled == nil {
		c.Timeout.Enabled = boolPtr(true)
	}
	if c.Timeout.RequestTimeout == 0 {
		c.Timeout.RequestTimeout = 30 * time.Second
	}

	if c.RateLimit.Enabled == nil {
		c.RateLimit.Enabled = boolPtr(true)
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 100
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}

	if c.Bulkhead.Enabled == nil {
		c.Bulkhead.Enabled = boolPtr(true)
	}
	if c.Bulkhead.MaxConcurrent == 0 {
		c.Bulkhead.MaxConcurrent = 200
	}
	if c.Bulkhead.Timeout == 0 {
		c.Bulkhead.Timeout = 100 * time.Millisecond
	}

	// The publish endpoint already degrades to 500 on storage failure; the
	// breaker is opt-in.
	if c.CircuitBreaker.Enabled == nil {
		c.CircuitBreaker.Enabled = boolPtr(false)
	}
	if c.CircuitBreaker.FailureThreshold == 0 {
		c.CircuitBreaker.FailureThreshold = 5
	}
	if c.CircuitBreaker.Timeout == 0 {
		c.CircuitBreaker.Timeout = 60 * time.Second
	}
	if c.CircuitBreaker.Interval == 0 {
		c.CircuitBreaker.Interval = 60 * time.Second
	}
	if c.CircuitBreaker.MaxRequests == 0 {
		c.CircuitBreaker.MaxRequests = 1
	}
}
