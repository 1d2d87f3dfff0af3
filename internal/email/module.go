package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/newsletter-publisher/pkg/http/client"
	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/avro/encoding"
	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/producer"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
	sender Sender
}

// Option configures the email module.
type Option func(*moduleOptions)

// WithEmailConfig uses cfg instead of the "email" section of viper.
func WithEmailConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// WithSender provides s as the Sender, bypassing transport selection.
func WithSender(s Sender) Option {
	return func(o *moduleOptions) {
		o.sender = s
	}
}

// NewEmailModule provides the Sender chosen by email.transport. The kafka
// transport needs the messaging module in the application.
func NewEmailModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.sender != nil {
		return fx.Module("email", fx.Provide(func() Sender { return o.sender }))
	}

	return fx.Module("email",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				if o.config != nil {
					cfg := *o.config
					applyDefaults(&cfg)
					return cfg, cfg.validate()
				}
				return newConfig(v)
			},
			newSender,
		),
	)
}

type senderParams struct {
	fx.In

	Conf           Config
	Viper          *viper.Viper
	Log            *zap.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Producer       producer.Producer         `optional:"true"`
	Resolver       encoding.SchemaIDResolver `optional:"true"`
}

func newSender(p senderParams) (Sender, error) {
	log := p.Log.With(zap.String("component", "email"), zap.String("transport", string(p.Conf.Transport)))

	s, err := newTransport(p)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s email sender: %w", p.Conf.Transport, err)
	}
	if p.Conf.CircuitBreaker.Enabled {
		s = newBreakerSender(s, "email-"+string(p.Conf.Transport), p.Conf.CircuitBreaker, log)
	}
	log.Info("email sender ready", zap.Bool("circuit_breaker", p.Conf.CircuitBreaker.Enabled))
	return s, nil
}

func newTransport(p senderParams) (Sender, error) {
	conf := p.Conf
	switch conf.Transport {
	case TransportSES:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c, err := newSESClient(ctx, conf.SES)
		if err != nil {
			return nil, err
		}
		return newSESSender(c, conf.From, conf.SES), nil

	case TransportHTTP:
		cc, err := client.LoadConfig(p.Viper, conf.HTTP.Client)
		if err != nil {
			return nil, err
		}
		s, err := newHTTPSender(client.New(cc, p.TracerProvider, p.MeterProvider), cc.BaseURL, conf.From, conf.HTTP)
		if err != nil {
			return nil, err
		}
		return s, nil

	case TransportKafka:
		if p.Producer == nil {
			return nil, errors.New("no kafka producer configured")
		}
		s, err := newKafkaSender(p.Producer, p.Resolver, conf.From, conf.Kafka)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return newLogSender(conf.From), nil
	}
}
