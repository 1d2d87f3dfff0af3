package outbox

import (
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	"go.uber.org/fx"
)

// NewOutboxModule provides the Mongo-backed Repository and TaskQueue.
func NewOutboxModule() fx.Option {
	return fx.Module("outbox",
		fx.Provide(
			func(m mongo.Mongo) (Repository, TaskQueue) {
				s := newStore(m)
				return s, s
			},
		),
	)
}
