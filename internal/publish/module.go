package publish

import (
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type moduleOptions struct {
	config *Config
}

// Option configures the publish module.
type Option func(*moduleOptions)

// WithPublishConfig uses cfg instead of the "publish" section of viper.
func WithPublishConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// NewPublishModule provides the Processor. It needs the idempotency.Config to
// check the claim timeout against the commit timeout.
func NewPublishModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("publish",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				if o.config != nil {
					cfg := *o.config
					applyDefaults(&cfg)
					return cfg, nil
				}
				return newConfig(v)
			},
			fx.Annotate(newProcessor, fx.As(new(Processor))),
		),
		fx.Invoke(checkClaimTimeout),
	)
}
