package delivery

import (
	"github.com/Sokol111/newsletter-publisher/internal/email"
	"github.com/Sokol111/newsletter-publisher/internal/issue"
	"github.com/Sokol111/newsletter-publisher/internal/outbox"
	"github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"github.com/Sokol111/newsletter-publisher/pkg/core/worker"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
	clock  Clock
}

// Option configures the delivery module.
type Option func(*moduleOptions)

// WithDeliveryConfig uses cfg instead of the "delivery" section of viper.
func WithDeliveryConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *moduleOptions) {
		o.clock = c
	}
}

type workerParams struct {
	fx.In

	Tasks  outbox.TaskQueue
	Issues issue.Reader
	Sender email.Sender
	Conf   Config
	App    config.AppConfig
	Log    *zap.Logger
	TP     trace.TracerProvider
	MP     metric.MeterProvider
}

// NewDeliveryModule provides the Worker and registers it as "delivery-worker".
// The application must include worker.Run for it to be started.
func NewDeliveryModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("delivery",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				if o.config != nil {
					cfg := *o.config
					applyDefaults(&cfg)
					return cfg, cfg.validate()
				}
				return newConfig(v)
			},
			func(p workerParams) (*Worker, error) {
				return newWorker(workerDeps{
					tasks:    p.Tasks,
					issues:   p.Issues,
					sender:   p.Sender,
					conf:     p.Conf,
					clock:    o.clock,
					log:      p.Log.Named("delivery"),
					tp:       p.TP,
					mp:       p.MP,
					workerID: p.App.InstanceID,
				})
			},
			worker.Register[*Worker]("delivery-worker", worker.WithReady(), worker.WithShutdown()),
		),
	)
}
