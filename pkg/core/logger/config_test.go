package logger

import (
	"testing"

	"github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewConfig_Defaults(t *testing.T) {
	// Given
	v := viper.New()

	// When
	cfg, err := newConfig(v)

	// Then
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, zapcore.ErrorLevel, cfg.StacktraceLevel)
	assert.False(t, cfg.Development)
}

func TestNewConfig_FromViper(t *testing.T) {
	// Given
	v := viper.New()
	v.Set("logger.level", "debug")
	v.Set("logger.development", true)
	v.Set("logger.stacktrace-level", "warn")
	v.Set("logger.output-paths", []string{"stdout"})

	// When
	cfg, err := newConfig(v)

	// Then
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, zapcore.WarnLevel, cfg.StacktraceLevel)
	assert.True(t, cfg.Development)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
}

func TestNewConfig_InvalidLevel(t *testing.T) {
	v := viper.New()
	v.Set("logger.level", "loud")

	_, err := newConfig(v)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, defaultConfig().Validate())

	cfg := defaultConfig()
	cfg.OutputPaths = []string{"stdout", " "}
	assert.Error(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	cfg := defaultConfig()
	cfg.OutputPaths = []string{"stdout"}

	log, err := newLogger(cfg, config.AppConfig{ServiceName: "newsletter", InstanceID: "worker-1"})

	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
