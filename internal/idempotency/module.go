package idempotency

import (
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
}

// Option configures the idempotency module.
type Option func(*moduleOptions)

// WithIdempotencyConfig uses cfg instead of the "idempotency" section of viper.
func WithIdempotencyConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// NewIdempotencyModule provides a Mongo-backed Store.
func NewIdempotencyModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("idempotency",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				if o.config != nil {
					cfg := *o.config
					applyDefaults(&cfg)
					return cfg, nil
				}
				return newConfig(v)
			},
			func(m mongo.Mongo, conf Config, log *zap.Logger) Store {
				return newStore(newMongoRepository(m), conf, log)
			},
		),
	)
}
