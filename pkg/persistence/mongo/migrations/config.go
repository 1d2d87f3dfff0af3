package migrations

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// AutoMigrate applies pending migrations when the application starts.
	AutoMigrate    bool          `mapstructure:"auto-migrate"`
	CollectionName string        `mapstructure:"collection-name"`
	LockTimeout    time.Duration `mapstructure:"lock-timeout"`
}

func defaultConfig() Config {
	return Config{
		CollectionName: "schema_migrations",
		LockTimeout:    time.Minute,
	}
}

func newConfig(v *viper.Viper) (Config, error) {
	cfg := defaultConfig()
	sub := v.Sub("mongo.migrations")
	if sub == nil {
		return cfg, nil
	}
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load mongo migrations config: %w", err)
	}
	if cfg.CollectionName == "" {
		cfg.CollectionName = defaultConfig().CollectionName
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultConfig().LockTimeout
	}
	return cfg, nil
}
