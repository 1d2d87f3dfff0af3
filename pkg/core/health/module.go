package health

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config is the "health" section.
type Config struct {
	// RunningInKubernetes delays traffic readiness until the readiness probe
	// has observed a healthy process at least once.
	RunningInKubernetes bool `mapstructure:"running-in-kubernetes"`
}

// NewReadinessModule provides one tracker behind ComponentManager,
// ReadinessChecker, ReadinessWaiter and TrafficController.
func NewReadinessModule() fx.Option {
	return fx.Module("readiness",
		fx.Provide(
			loadConfig,
			func(log *zap.Logger, cfg Config) *readiness {
				return newReadiness(log.Named("readiness"), cfg.RunningInKubernetes)
			},
			func(r *readiness) ComponentManager { return r },
			func(r *readiness) ReadinessChecker { return r },
			func(r *readiness) ReadinessWaiter { return r },
			func(r *readiness) TrafficController { return r },
		),
	)
}

func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if !v.IsSet("health") {
		return cfg, nil
	}
	if err := v.UnmarshalKey("health", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load health config: %w", err)
	}
	return cfg, nil
}
