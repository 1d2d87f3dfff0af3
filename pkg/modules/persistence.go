package modules

import (
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo/migrations"
	"go.uber.org/fx"
)

// NewPersistenceModule provides Mongo, the transaction manager and a
// Migrator. The application supplies the migrations.Source.
func NewPersistenceModule(opts ...mongo.Option) fx.Option {
	return fx.Options(
		mongo.NewMongoModule(opts...),
		migrations.NewMigrationsModule(),
	)
}
