package mongo

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ConnectionString string `mapstructure:"connection-string"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	ReplicaSet       string `mapstructure:"replica-set"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Database         string `mapstructure:"database"`
	DirectConnection bool   `mapstructure:"direct-connection"`

	MaxPoolSize         uint64        `mapstructure:"max-pool-size"`
	MinPoolSize         uint64        `mapstructure:"min-pool-size"`
	MaxConnIdleTime     time.Duration `mapstructure:"max-conn-idle-time"`
	ConnectTimeout      time.Duration `mapstructure:"connect-timeout"`
	ServerSelectTimeout time.Duration `mapstructure:"server-select-timeout"`

	// QueryTimeout bounds every single collection operation.
	QueryTimeout time.Duration `mapstructure:"query-timeout"`

	Bulkhead BulkheadConfig `mapstructure:"bulkhead"`
}

// BulkheadConfig caps concurrent collection operations per process.
type BulkheadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxConcurrent int           `mapstructure:"max-concurrent"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	sub := v.Sub("mongo")
	if sub == nil {
		return cfg, fmt.Errorf("mongo config section is missing")
	}
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load mongo config: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 100
	}
	if cfg.MinPoolSize == 0 {
		cfg.MinPoolSize = 5
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ServerSelectTimeout == 0 {
		cfg.ServerSelectTimeout = 30 * time.Second
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 10 * time.Second
	}
	if cfg.Bulkhead.Enabled && cfg.Bulkhead.MaxConcurrent == 0 {
		cfg.Bulkhead.MaxConcurrent = 64
	}
	if cfg.Bulkhead.Enabled && cfg.Bulkhead.Timeout == 0 {
		cfg.Bulkhead.Timeout = 500 * time.Millisecond
	}
}
