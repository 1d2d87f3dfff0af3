// Package container starts throwaway infrastructure for integration tests.
package container

import (
	"context"
	"fmt"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo/migrations"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.uber.org/zap"
)

const (
	defaultMongoImage = "mongo:7"
	defaultReplicaSet = "rs0"
)

// MongoDBContainer is a single-node replica set. Multi-document transactions
// need a replica set, so there is no standalone mode.
type MongoDBContainer struct {
	Container        *mongodb.MongoDBContainer
	ConnectionString string
}

type MongoDBContainerOption func(*mongoDBOptions)

type mongoDBOptions struct {
	image      string
	replicaSet string
}

func WithImage(image string) MongoDBContainerOption {
	return func(o *mongoDBOptions) {
		o.image = image
	}
}

// WithReplicaSet renames the replica set (default rs0).
func WithReplicaSet(name string) MongoDBContainerOption {
	return func(o *mongoDBOptions) {
		o.replicaSet = name
	}
}

func StartMongoDBContainer(ctx context.Context, opts ...MongoDBContainerOption) (*MongoDBContainer, error) {
	o := &mongoDBOptions{image: defaultMongoImage, replicaSet: defaultReplicaSet}
	for _, opt := range opts {
		opt(o)
	}

	c, err := mongodb.Run(ctx, o.image, mongodb.WithReplicaSet(o.replicaSet))
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}
	uri, err := c.ConnectionString(ctx)
	if err != nil {
		_ = c.Terminate(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to get mongodb connection string: %w", err)
	}
	return &MongoDBContainer{Container: c, ConnectionString: uri}, nil
}

// OpenPersistence connects to database on this container and applies
// source, the way auto-migrate does at application start.
func (m *MongoDBContainer) OpenPersistence(ctx context.Context, database string, source migrations.Source) (*mongo.Standalone, error) {
	log := zap.NewNop()
	conn, err := mongo.Open(ctx, log, mongo.Config{
		ConnectionString: m.ConnectionString,
		Database:         database,
	})
	if err != nil {
		return nil, err
	}

	migrator, err := migrations.NewMigrator(conn.URI(), source, migrations.Config{}, log)
	if err == nil {
		err = migrator.Up(ctx)
	}
	if err != nil {
		_ = conn.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}
	return conn, nil
}

func (m *MongoDBContainer) Terminate(ctx context.Context) error {
	if m.Container == nil {
		return nil
	}
	if err := m.Container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate mongodb container: %w", err)
	}
	return nil
}
