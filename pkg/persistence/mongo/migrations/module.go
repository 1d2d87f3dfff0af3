package migrations

import (
	"context"
	"fmt"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	manual bool
}

// Option configures the migrations module.
type Option func(*moduleOptions)

// WithoutAutoMigrate ignores auto-migrate, for tools that drive the Migrator themselves.
func WithoutAutoMigrate() Option {
	return func(o *moduleOptions) {
		o.manual = true
	}
}

// NewMigrationsModule provides a Migrator over the Source supplied by the
// application. With auto-migrate on, pending migrations run before any
// later OnStart hook.
func NewMigrationsModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("migrations",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				cfg, err := newConfig(v)
				if o.manual {
					cfg.AutoMigrate = false
				}
				return cfg, err
			},
			provideMigrator,
		),
		fx.Invoke(registerAutoMigrate),
	)
}

func provideMigrator(log *zap.Logger, conf Config, admin mongo.Admin, source Source) (Migrator, error) {
	return NewMigrator(admin.URI(), source, conf, log)
}

func registerAutoMigrate(lc fx.Lifecycle, log *zap.Logger, conf Config, m Migrator) {
	if !conf.AutoMigrate {
		log.Info("auto-migrate disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.Up(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			return nil
		},
	})
}
