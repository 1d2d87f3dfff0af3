package logger

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config controls how the process logger is built.
type Config struct {
	Level zapcore.Level
	// Development switches to the console encoder with colored levels.
	Development bool
	// OutputPaths defaults to stderr when empty.
	OutputPaths      []string
	ErrorOutputPaths []string
	StacktraceLevel  zapcore.Level
}

// rawConfig is the on-disk shape; levels are parsed separately so that a
// typo fails startup instead of silently logging at info.
type rawConfig struct {
	Level            string   `mapstructure:"level"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output-paths"`
	ErrorOutputPaths []string `mapstructure:"error-output-paths"`
	StacktraceLevel  string   `mapstructure:"stacktrace-level"`
}

func defaultConfig() Config {
	return Config{
		Level:           zapcore.InfoLevel,
		StacktraceLevel: zapcore.ErrorLevel,
	}
}

// Validate rejects blank output paths.
func (c Config) Validate() error {
	for name, paths := range map[string][]string{
		"output-paths":       c.OutputPaths,
		"error-output-paths": c.ErrorOutputPaths,
	} {
		for i, p := range paths {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("logger.%s[%d] cannot be empty", name, i)
			}
		}
	}
	return nil
}

func newConfig(v *viper.Viper) (Config, error) {
	sub := v.Sub("logger")
	if sub == nil {
		return defaultConfig(), nil
	}

	var raw rawConfig
	if err := sub.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("failed to load logger config: %w", err)
	}

	cfg := defaultConfig()
	cfg.Development = raw.Development
	cfg.OutputPaths = raw.OutputPaths
	cfg.ErrorOutputPaths = raw.ErrorOutputPaths

	if raw.Level != "" {
		level, err := zapcore.ParseLevel(raw.Level)
		if err != nil {
			return Config{}, fmt.Errorf("invalid log level '%s': %w", raw.Level, err)
		}
		cfg.Level = level
	}
	if raw.StacktraceLevel != "" {
		level, err := zapcore.ParseLevel(raw.StacktraceLevel)
		if err != nil {
			return Config{}, fmt.Errorf("invalid stacktrace level '%s': %w", raw.StacktraceLevel, err)
		}
		cfg.StacktraceLevel = level
	}

	return cfg, nil
}
