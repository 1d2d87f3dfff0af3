package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultReadinessTimeout = 30 * time.Second
	defaultDeliveryTimeout  = 30 * time.Second
	defaultAcks             = "all"
	defaultCacheCapacity    = 1000
)

// Config is the "kafka" section.
type Config struct {
	// Brokers is a comma-separated list of bootstrap servers.
	Brokers        string               `mapstructure:"brokers"`
	ClientID       string               `mapstructure:"client-id"`
	SchemaRegistry SchemaRegistryConfig `mapstructure:"schema-registry"`
	Producer       ProducerConfig       `mapstructure:"producer"`
}

type ProducerConfig struct {
	// ReadinessTimeout bounds the wait for brokers at startup. Zero waits forever.
	ReadinessTimeout  time.Duration `mapstructure:"readiness-timeout"`
	FailOnBrokerError *bool         `mapstructure:"fail-on-broker-error"`
	// DeliveryTimeout is librdkafka's message.timeout.ms.
	DeliveryTimeout time.Duration `mapstructure:"delivery-timeout"`
	Acks            string        `mapstructure:"acks"`
	Idempotent      bool          `mapstructure:"idempotent"`
}

// SchemaRegistryConfig is optional. Without a URL, records carry a fixed
// schema id from the sink configuration.
type SchemaRegistryConfig struct {
	URL           string `mapstructure:"url"`
	CacheCapacity int    `mapstructure:"cache-capacity"`
}

type configOptions struct {
	config *Config
}

// Option configures the kafka config module.
type Option func(*configOptions)

// WithKafkaConfig uses cfg instead of viper.
func WithKafkaConfig(cfg Config) Option {
	return func(o *configOptions) {
		o.config = &cfg
	}
}

func NewKafkaConfigModule(opts ...Option) fx.Option {
	o := &configOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Provide(func(v *viper.Viper, log *zap.Logger) (Config, error) {
		var cfg Config
		if o.config != nil {
			cfg = *o.config
			applyDefaults(&cfg)
			return cfg, validate(cfg)
		}
		cfg, err := newConfig(v)
		if err != nil {
			return cfg, err
		}
		log.Info("loaded kafka config",
			zap.String("brokers", cfg.Brokers),
			zap.String("schema-registry", cfg.SchemaRegistry.URL),
		)
		return cfg, nil
	})
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	sub := v.Sub("kafka")
	if sub == nil {
		return cfg, errors.New("kafka configuration section is required")
	}
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load kafka config: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, validate(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Producer.ReadinessTimeout == 0 {
		cfg.Producer.ReadinessTimeout = defaultReadinessTimeout
	}
	if cfg.Producer.FailOnBrokerError == nil {
		failOnError := true
		cfg.Producer.FailOnBrokerError = &failOnError
	}
	if cfg.Producer.DeliveryTimeout == 0 {
		cfg.Producer.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.Producer.Acks == "" {
		cfg.Producer.Acks = defaultAcks
	}
	if cfg.SchemaRegistry.CacheCapacity == 0 {
		cfg.SchemaRegistry.CacheCapacity = defaultCacheCapacity
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Brokers) == "" {
		return errors.New("kafka.brokers is required")
	}
	switch cfg.Producer.Acks {
	case "all", "-1", "0", "1":
	default:
		return fmt.Errorf("kafka.producer.acks must be one of all, -1, 0, 1: got %q", cfg.Producer.Acks)
	}
	if cfg.Producer.Idempotent && cfg.Producer.Acks != "all" && cfg.Producer.Acks != "-1" {
		return errors.New("kafka.producer.idempotent requires acks=all")
	}
	return nil
}
