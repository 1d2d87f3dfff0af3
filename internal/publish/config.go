package publish

import (
	"fmt"
	"time"

	"github.com/Sokol111/newsletter-publisher/internal/idempotency"
	"github.com/spf13/viper"
)

type Config struct {
	// CommitTimeout bounds the publishing transaction. The transaction is
	// detached from the request, so it completes even if the client leaves.
	CommitTimeout time.Duration `mapstructure:"commit-timeout"`
	// ReleaseTimeout bounds the best-effort release of a failed claim.
	ReleaseTimeout time.Duration `mapstructure:"release-timeout"`
}

func defaultConfig() Config {
	return Config{
		CommitTimeout:  30 * time.Second,
		ReleaseTimeout: 5 * time.Second,
	}
}

func newConfig(v *viper.Viper) (Config, error) {
	cfg := defaultConfig()
	if sub := v.Sub("publish"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load publish config: %w", err)
		}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = defaultConfig().CommitTimeout
	}
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = defaultConfig().ReleaseTimeout
	}
}

// checkClaimTimeout requires an idempotency claim to outlive the publishing
// transaction; otherwise a retry could take over a key that is still committing.
func checkClaimTimeout(pub Config, idem idempotency.Config) error {
	if idem.ClaimTimeout <= pub.CommitTimeout {
		return fmt.Errorf("idempotency claim-timeout %s must be longer than publish commit-timeout %s",
			idem.ClaimTimeout, pub.CommitTimeout)
	}
	return nil
}
