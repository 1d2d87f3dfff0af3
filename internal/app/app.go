// Package app assembles the newsletter service from its fx modules.
package app

import (
	"github.com/Sokol111/newsletter-publisher/internal/delivery"
	"github.com/Sokol111/newsletter-publisher/internal/email"
	"github.com/Sokol111/newsletter-publisher/internal/httpapi"
	"github.com/Sokol111/newsletter-publisher/internal/idempotency"
	"github.com/Sokol111/newsletter-publisher/internal/issue"
	"github.com/Sokol111/newsletter-publisher/internal/outbox"
	"github.com/Sokol111/newsletter-publisher/internal/publish"
	"github.com/Sokol111/newsletter-publisher/internal/schema"
	"github.com/Sokol111/newsletter-publisher/internal/subscriber"
	"github.com/Sokol111/newsletter-publisher/pkg/core"
	"github.com/Sokol111/newsletter-publisher/pkg/core/worker"
	"github.com/Sokol111/newsletter-publisher/pkg/modules"
	"github.com/Sokol111/newsletter-publisher/pkg/observability"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo/migrations"
	"github.com/Sokol111/newsletter-publisher/pkg/security"
	"go.uber.org/fx"
)

type options struct {
	api      bool
	worker   bool
	kafka    bool
	core     []core.Option
	obs      []observability.Option
	mongo    []mongo.Option
	security []security.SecurityOption
	email    []email.Option
	delivery []delivery.Option
	extra    []fx.Option
}

// Option selects what the application runs and overrides module configuration.
type Option func(*options)

// WithAPI serves the publish and issue status endpoints.
func WithAPI() Option {
	return func(o *options) { o.api = true }
}

// WithDeliveryWorker runs the outbox delivery worker.
func WithDeliveryWorker() Option {
	return func(o *options) { o.worker = true }
}

// WithKafka adds the Kafka producer, needed by the kafka email transport.
func WithKafka() Option {
	return func(o *options) { o.kafka = true }
}

func WithCoreOptions(opts ...core.Option) Option {
	return func(o *options) { o.core = append(o.core, opts...) }
}

func WithObservabilityOptions(opts ...observability.Option) Option {
	return func(o *options) { o.obs = append(o.obs, opts...) }
}

func WithMongoOptions(opts ...mongo.Option) Option {
	return func(o *options) { o.mongo = append(o.mongo, opts...) }
}

func WithSecurityOptions(opts ...security.SecurityOption) Option {
	return func(o *options) { o.security = append(o.security, opts...) }
}

func WithEmailOptions(opts ...email.Option) Option {
	return func(o *options) { o.email = append(o.email, opts...) }
}

func WithDeliveryOptions(opts ...delivery.Option) Option {
	return func(o *options) { o.delivery = append(o.delivery, opts...) }
}

// WithFxOptions appends raw fx options, e.g. fx.Populate in tests.
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) { o.extra = append(o.extra, opts...) }
}

// Modules returns the fx options of the service. Health probes are always
// served; the API and the delivery worker are enabled separately so that
// they can be scaled independently.
func Modules(opts ...Option) fx.Option {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	mods := []fx.Option{
		modules.NewCoreModule(o.core...),
		modules.NewObservabilityModule(o.obs...),
		modules.NewPersistenceModule(o.mongo...),
		modules.NewHTTPModule(),
		schema.NewSchemaModule(),
		issue.NewIssueModule(),
		outbox.NewOutboxModule(),
	}

	if o.api {
		mods = append(mods,
			security.NewSecurityModule(o.security...),
			idempotency.NewIdempotencyModule(),
			subscriber.NewSubscriberModule(),
			publish.NewPublishModule(),
			httpapi.NewHTTPAPIModule(),
		)
	}

	if o.worker {
		if o.kafka {
			mods = append(mods, modules.NewMessagingModule())
		}
		mods = append(mods,
			email.NewEmailModule(o.email...),
			delivery.NewDeliveryModule(o.delivery...),
			worker.Run(),
		)
	}

	return fx.Options(append(mods, o.extra...)...)
}

// MigrationModules returns the options of the one-shot migration tool: a
// Mongo connection and a Migrator that is never run automatically.
func MigrationModules(opts ...Option) fx.Option {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Options(append([]fx.Option{
		modules.NewCoreModule(o.core...),
		mongo.NewMongoModule(o.mongo...),
		schema.NewSchemaModule(),
		migrations.NewMigrationsModule(migrations.WithoutAutoMigrate()),
	}, o.extra...)...)
}
