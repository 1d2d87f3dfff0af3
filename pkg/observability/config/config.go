// Package config reads the "observability" section.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	DefaultMetricsInterval      = 10 * time.Second
	DefaultShutdownTimeout      = 5 * time.Second
	DefaultRuntimeStatsInterval = time.Second
	DefaultSampleRatio          = 1.0
)

// Readiness component names.
const (
	TracingComponentName = "tracing"
	MetricsComponentName = "metrics"
)

type Config struct {
	OtelCollectorEndpoint string `mapstructure:"otel-collector-endpoint"`

	Tracing struct {
		Enabled bool `mapstructure:"enabled"`
		// SampleRatio applies to root spans; child spans follow their parent.
		SampleRatio float64 `mapstructure:"sample-ratio"`
	} `mapstructure:"tracing"`

	Metrics struct {
		Enabled  bool          `mapstructure:"enabled"`
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"metrics"`
}

// Overrides take precedence over whatever viper holds.
type Overrides struct {
	Static         *Config
	DisableTracing bool
	DisableMetrics bool
}

// NewObservabilityConfigModule provides Config.
func NewObservabilityConfigModule(o Overrides) fx.Option {
	return fx.Provide(func(v *viper.Viper, log *zap.Logger) (Config, error) {
		cfg, err := load(v, o)
		if err != nil {
			return cfg, err
		}
		log.Info("observability config",
			zap.Bool("tracing", cfg.Tracing.Enabled),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.String("collector", cfg.OtelCollectorEndpoint),
		)
		return cfg, nil
	})
}

func load(v *viper.Viper, o Overrides) (Config, error) {
	var cfg Config
	switch {
	case o.Static != nil:
		cfg = *o.Static
	case v.IsSet("observability"):
		if err := v.UnmarshalKey("observability", &cfg); err != nil {
			return cfg, fmt.Errorf("failed to load observability config: %w", err)
		}
	}

	if cfg.Metrics.Interval <= 0 {
		cfg.Metrics.Interval = DefaultMetricsInterval
	}
	if r := cfg.Tracing.SampleRatio; r <= 0 || r > 1 {
		cfg.Tracing.SampleRatio = DefaultSampleRatio
	}
	cfg.Tracing.Enabled = cfg.Tracing.Enabled && !o.DisableTracing
	cfg.Metrics.Enabled = cfg.Metrics.Enabled && !o.DisableMetrics
	return cfg, nil
}
