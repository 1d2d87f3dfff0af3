package subscriber

import "go.uber.org/fx"

// NewSubscriberModule provides the Mongo-backed Source.
func NewSubscriberModule() fx.Option {
	return fx.Module("subscriber",
		fx.Provide(newMongoSource),
	)
}
