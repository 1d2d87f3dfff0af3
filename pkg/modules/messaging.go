package modules

import (
	"github.com/Sokol111/newsletter-publisher/pkg/messaging"
	"go.uber.org/fx"
)

// NewMessagingModule provides the Kafka producer and the schema id resolver.
// Include it only when something produces to Kafka: the producer connects
// on start.
func NewMessagingModule(opts ...messaging.MessagingOption) fx.Option {
	return messaging.NewMessagingModule(opts...)
}
