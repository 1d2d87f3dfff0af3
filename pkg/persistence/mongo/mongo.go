package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
	"go.uber.org/zap"
)

// Mongo hands out collections to repositories.
type Mongo interface {
	GetCollection(name string) Collection
}

// Admin is used by infrastructure: transactions, index setup, health checks.
type Admin interface {
	Mongo
	Database() *mongo.Database
	StartSession() (Session, error)
	Ping(ctx context.Context) error
	// URI is the connection string including the database path.
	URI() string
}

type client struct {
	client   *mongo.Client
	database *mongo.Database
	conf     Config
	uri      string
	bulkhead *bulkhead
	log      *zap.Logger
}

func newMongo(log *zap.Logger, conf Config) (*client, error) {
	if err := validateConfig(conf); err != nil {
		return nil, err
	}

	uri := buildURI(conf)
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(conf.MaxPoolSize).
		SetMinPoolSize(conf.MinPoolSize).
		SetMaxConnIdleTime(conf.MaxConnIdleTime).
		SetConnectTimeout(conf.ConnectTimeout).
		SetServerSelectionTimeout(conf.ServerSelectTimeout).
		SetMonitor(otelmongo.NewMonitor())

	// Connect only builds the pool; the first round trip happens in connect.
	c, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	m := &client{
		client:   c,
		database: c.Database(conf.Database),
		conf:     conf,
		uri:      uri,
		log:      log,
	}
	if conf.Bulkhead.Enabled {
		m.bulkhead = newBulkhead(conf.Bulkhead.MaxConcurrent, conf.Bulkhead.Timeout, log)
	}
	return m, nil
}

func validateConfig(conf Config) error {
	if conf.Database == "" {
		return errors.New("invalid mongo configuration: database is required")
	}
	if conf.ConnectionString != "" {
		return nil
	}
	if conf.Host == "" || conf.Port == 0 {
		return errors.New("invalid mongo configuration: host and port are required without connection-string")
	}
	return nil
}

// buildURI returns a connection string whose path names the configured database.
func buildURI(conf Config) string {
	if conf.ConnectionString != "" {
		u, err := url.Parse(conf.ConnectionString)
		if err != nil {
			// Seed lists such as "h1:27017,h2:27017" are not valid URL hosts;
			// the driver parses those itself.
			return conf.ConnectionString
		}
		if strings.Trim(u.Path, "/") == "" {
			u.Path = "/" + conf.Database
		}
		return u.String()
	}

	u := url.URL{
		Scheme: "mongodb",
		Host:   conf.Host + ":" + strconv.Itoa(conf.Port),
		Path:   "/" + conf.Database,
	}
	if conf.Username != "" {
		u.User = url.UserPassword(conf.Username, conf.Password)
	}

	q := url.Values{}
	if conf.ReplicaSet != "" {
		q.Set("replicaSet", conf.ReplicaSet)
	}
	if conf.DirectConnection {
		q.Set("directConnection", "true")
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func (m *client) connect(ctx context.Context) error {
	if err := m.Ping(ctx); err != nil {
		return err
	}
	m.log.Info("connected to mongo",
		zap.String("database", m.conf.Database),
		zap.Uint64("max-pool-size", m.conf.MaxPoolSize),
		zap.Duration("query-timeout", m.conf.QueryTimeout),
	)
	return nil
}

func (m *client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.conf.ConnectTimeout)
	defer cancel()
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}
	return nil
}

func (m *client) GetCollection(name string) Collection {
	opts := make([]WrapperOption, 0, 2)
	if m.bulkhead != nil {
		opts = append(opts, WithMiddleware(m.bulkhead.middleware))
	}
	opts = append(opts, WithTimeout(m.conf.QueryTimeout))
	return newCollectionWrapper(m.database.Collection(name), opts...)
}

func (m *client) Database() *mongo.Database {
	return m.database
}

func (m *client) StartSession() (Session, error) {
	sess, err := m.client.StartSession()
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *client) URI() string {
	return m.uri
}

func (m *client) disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.conf.ConnectTimeout)
	defer cancel()
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}
	m.log.Info("disconnected from mongo")
	return nil
}
