package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	fromViper := viper.New()
	fromViper.Set("observability.otel-collector-endpoint", "collector:4317")
	fromViper.Set("observability.tracing.enabled", true)
	fromViper.Set("observability.tracing.sample-ratio", 0.25)
	fromViper.Set("observability.metrics.enabled", true)
	fromViper.Set("observability.metrics.interval", "30s")

	static := Config{OtelCollectorEndpoint: "static:4317"}
	static.Tracing.Enabled = true
	static.Tracing.SampleRatio = 7

	tests := []struct {
		name      string
		v         *viper.Viper
		overrides Overrides
		endpoint  string
		tracing   bool
		metrics   bool
		ratio     float64
		interval  time.Duration
	}{
		{
			name:     "empty section falls back to defaults",
			v:        viper.New(),
			ratio:    DefaultSampleRatio,
			interval: DefaultMetricsInterval,
		},
		{
			name:     "viper section",
			v:        fromViper,
			endpoint: "collector:4317", tracing: true, metrics: true,
			ratio: 0.25, interval: 30 * time.Second,
		},
		{
			name:      "disable flags win over viper",
			v:         fromViper,
			overrides: Overrides{DisableTracing: true, DisableMetrics: true},
			endpoint:  "collector:4317",
			ratio:     0.25, interval: 30 * time.Second,
		},
		{
			name:      "static config ignores viper and clamps the ratio",
			v:         fromViper,
			overrides: Overrides{Static: &static},
			endpoint:  "static:4317", tracing: true,
			ratio: DefaultSampleRatio, interval: DefaultMetricsInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load(tt.v, tt.overrides)

			require.NoError(t, err)
			assert.Equal(t, tt.endpoint, cfg.OtelCollectorEndpoint)
			assert.Equal(t, tt.tracing, cfg.Tracing.Enabled)
			assert.Equal(t, tt.metrics, cfg.Metrics.Enabled)
			assert.Equal(t, tt.ratio, cfg.Tracing.SampleRatio)
			assert.Equal(t, tt.interval, cfg.Metrics.Interval)
		})
	}
}
