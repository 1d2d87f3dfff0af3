// Package core assembles what every newsletter process needs before any
// domain module runs: environment, configuration, logging and readiness.
package core

import (
	"time"

	"github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"github.com/Sokol111/newsletter-publisher/pkg/core/health"
	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"go.uber.org/fx"
)

const (
	startTimeout = 2 * time.Minute
	stopTimeout  = time.Minute
)

type options struct {
	skipEnv   bool
	viperOpts []config.ViperOption
	appOpts   []config.AppConfigOption
	logOpts   []logger.Option
}

type Option func(*options)

// WithAppConfig replaces the APP_* environment variables.
func WithAppConfig(cfg config.AppConfig) Option {
	return func(o *options) { o.appOpts = append(o.appOpts, config.WithAppConfig(cfg)) }
}

// WithLoggerConfig replaces the "logger" section.
func WithLoggerConfig(cfg logger.Config) Option {
	return func(o *options) { o.logOpts = append(o.logOpts, logger.WithLoggerConfig(cfg)) }
}

// WithConfigPath reads the YAML file at path; a missing file fails startup.
func WithConfigPath(path string) Option {
	return func(o *options) { o.viperOpts = append(o.viperOpts, config.WithConfigPath(path)) }
}

// WithoutConfigFile leaves configuration to environment variables.
func WithoutConfigFile() Option {
	return func(o *options) { o.viperOpts = append(o.viperOpts, config.WithoutConfigFile()) }
}

// WithoutEnvFile skips ./.env, for callers that loaded the environment
// themselves.
func WithoutEnvFile() Option {
	return func(o *options) { o.skipEnv = true }
}

// NewCoreModule provides *viper.Viper, config.AppConfig, *zap.Logger and the
// readiness tracker.
//
//	core.NewCoreModule(
//	    core.WithAppConfig(config.AppConfig{...}),
//	    core.WithoutEnvFile(),
//	    core.WithoutConfigFile(),
//	)
func NewCoreModule(opts ...Option) fx.Option {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	modules := []fx.Option{
		fx.StartTimeout(startTimeout),
		fx.StopTimeout(stopTimeout),
	}
	if !o.skipEnv {
		modules = append(modules, config.NewDotEnvModule())
	}
	return fx.Options(append(modules,
		config.NewViperModule(o.viperOpts...),
		config.NewAppConfigModule(o.appOpts...),
		logger.NewZapLoggingModule(o.logOpts...),
		health.NewReadinessModule(),
	)...)
}
