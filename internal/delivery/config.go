package delivery

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Concurrency is the number of claim loops per process.
	Concurrency int `mapstructure:"concurrency"`
	// Lease is how long a claimed task stays invisible to other workers.
	Lease time.Duration `mapstructure:"lease"`
	// SendTimeout bounds one delivery attempt. It must be shorter than Lease.
	SendTimeout   time.Duration `mapstructure:"send-timeout"`
	IdleInterval  time.Duration `mapstructure:"idle-interval"`
	ErrorInterval time.Duration `mapstructure:"error-interval"`

	// MaxAttempts of 1 drops a task after its first failed attempt.
	MaxAttempts    int           `mapstructure:"max-attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry-base-delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry-max-delay"`

	// RateLimit caps sends per second across the process. Zero disables it.
	RateLimit float64 `mapstructure:"rate-limit"`
	RateBurst int     `mapstructure:"rate-burst"`
}

func defaultConfig() Config {
	return Config{
		Concurrency:    1,
		Lease:          time.Minute,
		SendTimeout:    30 * time.Second,
		IdleInterval:   5 * time.Second,
		ErrorInterval:  10 * time.Second,
		MaxAttempts:    1,
		RetryBaseDelay: 30 * time.Second,
		RetryMaxDelay:  time.Hour,
		RateBurst:      1,
	}
}

func newConfig(v *viper.Viper) (Config, error) {
	cfg := defaultConfig()
	if sub := v.Sub("delivery"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load delivery config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid delivery config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Lease <= 0 {
		cfg.Lease = def.Lease
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = min(def.SendTimeout, cfg.Lease/2)
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = def.IdleInterval
	}
	if cfg.ErrorInterval <= 0 {
		cfg.ErrorInterval = def.ErrorInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		cfg.RetryMaxDelay = max(def.RetryMaxDelay, cfg.RetryBaseDelay)
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = def.RateBurst
	}
}

func (c Config) validate() error {
	if c.SendTimeout >= c.Lease {
		return fmt.Errorf("send-timeout %s must be shorter than lease %s", c.SendTimeout, c.Lease)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate-limit must not be negative")
	}
	return nil
}
