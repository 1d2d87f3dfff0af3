package logger

import (
	"fmt"

	"github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger. Every entry carries the service and
// instance so that delivery logs from several worker replicas can be told
// apart; the instance is also the outbox lease owner.
func newLogger(conf Config, app config.AppConfig) (*zap.Logger, error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	zc := zap.NewProductionConfig()
	if conf.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(conf.Level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if len(conf.OutputPaths) > 0 {
		zc.OutputPaths = conf.OutputPaths
	}
	if len(conf.ErrorOutputPaths) > 0 {
		zc.ErrorOutputPaths = conf.ErrorOutputPaths
	}

	log, err := zc.Build(
		zap.AddCaller(),
		zap.AddStacktrace(conf.StacktraceLevel),
		zap.Fields(
			zap.String("service", app.ServiceName),
			zap.String("instance_id", app.InstanceID),
		),
	)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)

	log.Debug("logger ready",
		zap.Stringer("level", conf.Level),
		zap.Bool("development", conf.Development),
		zap.String("version", app.ServiceVersion),
	)
	return log, nil
}
