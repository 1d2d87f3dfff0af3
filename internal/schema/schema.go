// Package schema holds the MongoDB index migrations of the service.
package schema

import (
	"embed"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo/migrations"
	"go.uber.org/fx"
)

//go:embed migrations/*.json
var migrationsFS embed.FS

// Source returns the embedded migrations.
func Source() migrations.Source {
	return migrations.Source{FS: migrationsFS, Dir: "migrations"}
}

// NewSchemaModule supplies Source to the migrations module of
// modules.NewPersistenceModule.
func NewSchemaModule() fx.Option {
	return fx.Module("schema",
		fx.Provide(Source),
	)
}
