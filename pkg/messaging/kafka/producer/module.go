package producer

import (
	"context"

	"github.com/Sokol111/newsletter-publisher/pkg/core/health"
	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const componentName = "kafka-producer"

// NewProducerModule provides Producer. Readiness is held back until the
// brokers answer a metadata request, so the delivery worker does not claim
// outbox tasks it cannot publish yet.
func NewProducerModule() fx.Option {
	return fx.Provide(provideProducer)
}

func provideProducer(lc fx.Lifecycle, log *zap.Logger, conf config.Config, components health.ComponentManager) (Producer, error) {
	log = log.Named(componentName)

	kp, err := newKafkaProducer(conf)
	if err != nil {
		return nil, err
	}
	p := newProducer(kp, log)
	ready := components.AddComponent(componentName)

	lc.Append(fx.StartStopHook(
		func(ctx context.Context) error {
			err := waitForBrokers(ctx, kp, log, conf.Producer.ReadinessTimeout, *conf.Producer.FailOnBrokerError)
			if err == nil {
				ready()
			}
			return err
		},
		p.Close,
	))
	return p, nil
}
