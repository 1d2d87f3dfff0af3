package logger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type loggerOptions struct {
	config *Config
}

// Option configures the logger module.
type Option func(*loggerOptions)

// WithLoggerConfig uses cfg instead of the "logger" section of viper.
func WithLoggerConfig(cfg Config) Option {
	return func(o *loggerOptions) {
		o.config = &cfg
	}
}

// NewZapLoggingModule provides *zap.Logger and routes fx events through it.
func NewZapLoggingModule(opts ...Option) fx.Option {
	o := &loggerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Options(
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				if o.config != nil {
					return *o.config, nil
				}
				return newConfig(v)
			},
			provideLogger,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
	)
}

func provideLogger(lc fx.Lifecycle, conf Config, app config.AppConfig) (*zap.Logger, error) {
	log, err := newLogger(conf, app)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return ignoreSyncError(log.Sync())
		},
	})
	return log, nil
}

// ignoreSyncError drops the EINVAL/ENOTTY that fsync returns for terminals.
func ignoreSyncError(err error) error {
	if err == nil {
		return nil
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && (errors.Is(pathErr.Err, syscall.EINVAL) || errors.Is(pathErr.Err, syscall.ENOTTY)) {
		return nil
	}
	return err
}
