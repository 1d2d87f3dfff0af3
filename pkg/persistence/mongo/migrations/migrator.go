package migrations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Source is the set of migration files: NNNNNN_name.up.json / .down.json
// pairs, each holding an array of database commands.
type Source struct {
	FS  fs.FS
	Dir string
}

type Migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Version(ctx context.Context) (version uint, dirty bool, err error)
}

type migrator struct {
	uri    string
	source Source
	conf   Config
	log    *zap.Logger
}

// NewMigrator builds a Migrator outside of fx.
func NewMigrator(uri string, source Source, conf Config, log *zap.Logger) (Migrator, error) {
	if conf.CollectionName == "" {
		conf.CollectionName = defaultConfig().CollectionName
	}
	if conf.LockTimeout <= 0 {
		conf.LockTimeout = defaultConfig().LockTimeout
	}
	m, err := newMigrator(uri, source, conf, log)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func newMigrator(uri string, source Source, conf Config, log *zap.Logger) (*migrator, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if source.FS == nil {
		return nil, errors.New("migration source filesystem is required")
	}
	return &migrator{uri: uri, source: source, conf: conf, log: log}, nil
}

// databaseURL adds the golang-migrate driver parameters to a mongo URI.
func databaseURL(uri string, conf Config) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid mongo uri: %w", err)
	}
	q := u.Query()
	q.Set("x-migrations-collection", conf.CollectionName)
	q.Set("x-advisory-locking", "true")
	q.Set("x-advisory-lock-timeout", strconv.Itoa(int(conf.LockTimeout.Seconds())))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (m *migrator) open() (*migrate.Migrate, error) {
	src, err := iofs.New(m.source.FS, m.source.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}
	dbURL, err := databaseURL(m.uri, m.conf)
	if err != nil {
		return nil, err
	}
	mi, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mi, nil
}

// run executes step and asks migrate to stop after the current file when ctx ends.
func (m *migrator) run(ctx context.Context, step func(*migrate.Migrate) error) (*migrate.Migrate, error) {
	mi, err := m.open()
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mi.GracefulStop <- true
		case <-done:
		}
	}()

	err = step(mi)
	if errors.Is(err, migrate.ErrNoChange) {
		return mi, nil
	}
	return mi, err
}

func (m *migrator) Up(ctx context.Context) error {
	m.log.Info("applying migrations", zap.String("collection", m.conf.CollectionName))

	mi, err := m.run(ctx, func(mi *migrate.Migrate) error { return mi.Up() })
	if err != nil {
		return fmt.Errorf("failed to run migrations up: %w", err)
	}
	defer closeMigrate(mi, m.log)

	return m.logVersion(mi, "migrations applied")
}

func (m *migrator) Down(ctx context.Context) error {
	m.log.Warn("rolling back all migrations", zap.String("collection", m.conf.CollectionName))

	mi, err := m.run(ctx, func(mi *migrate.Migrate) error { return mi.Down() })
	if err != nil {
		return fmt.Errorf("failed to run migrations down: %w", err)
	}
	defer closeMigrate(mi, m.log)

	m.log.Info("migrations rolled back")
	return nil
}

func (m *migrator) Version(context.Context) (uint, bool, error) {
	mi, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer closeMigrate(mi, m.log)

	version, dirty, err := mi.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

func (m *migrator) logVersion(mi *migrate.Migrate, msg string) error {
	version, dirty, err := mi.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	m.log.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func closeMigrate(mi *migrate.Migrate, log *zap.Logger) {
	if mi == nil {
		return
	}
	srcErr, dbErr := mi.Close()
	if srcErr != nil || dbErr != nil {
		log.Warn("failed to close migrate instance", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
	}
}
