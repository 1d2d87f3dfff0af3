package mongo

import (
	"context"

	"github.com/Sokol111/newsletter-publisher/pkg/core/health"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type mongoOptions struct {
	config *Config
}

// Option configures the mongo module.
type Option func(*mongoOptions)

// WithMongoConfig uses cfg instead of the "mongo" section of viper.
func WithMongoConfig(cfg Config) Option {
	return func(o *mongoOptions) {
		o.config = &cfg
	}
}

// NewMongoModule provides Mongo, Admin and a transactional persistence.TxManager.
func NewMongoModule(opts ...Option) fx.Option {
	o := &mongoOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("mongo",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				if o.config != nil {
					cfg := *o.config
					applyDefaults(&cfg)
					return cfg, nil
				}
				return newConfig(v)
			},
			provideMongo,
			func(a Admin, log *zap.Logger) persistence.TxManager {
				return newTxManager(a, log)
			},
		),
	)
}

func provideMongo(lc fx.Lifecycle, log *zap.Logger, conf Config, readiness health.ComponentManager) (Mongo, Admin, error) {
	m, err := newMongo(log, conf)
	if err != nil {
		return nil, nil, err
	}

	markReady := readiness.AddComponent("mongo")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.connect(ctx); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: m.disconnect,
	})

	return m, m, nil
}
