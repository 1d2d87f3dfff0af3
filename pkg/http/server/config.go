package server

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Port int `mapstructure:"port"`

	// Connection settings are hard limits that close the connection without an
	// HTTP response. Request-level limits live in the middleware config.
	Connection ConnectionConfig `mapstructure:"connection"`
}

type ConnectionConfig struct {
	ReadHeaderTimeout time.Duration `mapstructure:"read-header-timeout"`
	ReadTimeout       time.Duration `mapstructure:"read-timeout"`
	WriteTimeout      time.Duration `mapstructure:"write-timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle-timeout"`
	MaxHeaderBytes    int           `mapstructure:"max-header-bytes"`
}

func newConfig(v *viper.Viper, logger *zap.Logger) (Config, error) {
	var cfg Config
	if sub := v.Sub("server"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load server config: %w", err)
		}
	}
	cfg.setDefaults()

	logger.Info("loaded server config", zap.Int("port", cfg.Port))
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	c.Connection.setDefaults()
}

func (c *ConnectionConfig) setDefaults() {
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = 10 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	// Must exceed the request timeout so the 504 problem can still be written.
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 40 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.MaxHeaderBytes == 0 {
		c.MaxHeaderBytes = 1 << 20
	}
}
