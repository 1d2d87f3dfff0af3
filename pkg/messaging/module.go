// Package messaging wires the Kafka producer and Avro encoding.
package messaging

import (
	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/config"
	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/producer"
	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/schemaregistry"
	"go.uber.org/fx"
)

type messagingOptions struct {
	kafkaConfig *config.Config
}

// MessagingOption configures the messaging module.
type MessagingOption func(*messagingOptions)

// WithKafkaConfig uses cfg instead of viper.
func WithKafkaConfig(cfg config.Config) MessagingOption {
	return func(opts *messagingOptions) {
		opts.kafkaConfig = &cfg
	}
}

// NewMessagingModule provides config.Config, producer.Producer and an
// encoding.SchemaIDResolver (nil without a registry URL).
func NewMessagingModule(opts ...MessagingOption) fx.Option {
	o := &messagingOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var configOpts []config.Option
	if o.kafkaConfig != nil {
		configOpts = append(configOpts, config.WithKafkaConfig(*o.kafkaConfig))
	}

	return fx.Module("messaging",
		config.NewKafkaConfigModule(configOpts...),
		producer.NewProducerModule(),
		schemaregistry.NewSchemaRegistryModule(),
	)
}
