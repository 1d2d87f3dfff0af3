package idempotency

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// PollInterval is the first wait of a request that lost the race for a key.
	PollInterval time.Duration `mapstructure:"poll-interval"`
	// MaxPollInterval caps the exponential wait between polls.
	MaxPollInterval time.Duration `mapstructure:"max-poll-interval"`
	// WaitTimeout bounds how long a losing request waits before ErrInProgress.
	WaitTimeout time.Duration `mapstructure:"wait-timeout"`
	// ClaimTimeout is the age after which a claim is considered abandoned.
	ClaimTimeout time.Duration `mapstructure:"claim-timeout"`
}

func defaultConfig() Config {
	return Config{
		PollInterval:    50 * time.Millisecond,
		MaxPollInterval: time.Second,
		WaitTimeout:     5 * time.Second,
		ClaimTimeout:    time.Minute,
	}
}

func newConfig(v *viper.Viper) (Config, error) {
	cfg := defaultConfig()
	if sub := v.Sub("idempotency"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load idempotency config: %w", err)
		}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxPollInterval < cfg.PollInterval {
		cfg.MaxPollInterval = max(def.MaxPollInterval, cfg.PollInterval)
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = def.WaitTimeout
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = def.ClaimTimeout
	}
}
