package schemaregistry

import (
	"context"

	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/avro/encoding"
	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/config"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewSchemaRegistryModule provides an encoding.SchemaIDResolver backed by the
// registry in kafka.schema-registry.url. Without a URL the resolver is nil and
// serializers emit bare Avro.
func NewSchemaRegistryModule() fx.Option {
	return fx.Provide(provideResolver)
}

func provideResolver(lc fx.Lifecycle, conf config.Config, log *zap.Logger) (encoding.SchemaIDResolver, error) {
	if conf.SchemaRegistry.URL == "" {
		log.Info("schema registry not configured")
		return nil, nil
	}

	srConf := schemaregistry.NewConfig(conf.SchemaRegistry.URL)
	srConf.CacheCapacity = conf.SchemaRegistry.CacheCapacity
	client, err := schemaregistry.NewClient(srConf)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing schema registry client")
			return client.Close()
		},
	})

	return encoding.NewRegistryResolver(client), nil
}
