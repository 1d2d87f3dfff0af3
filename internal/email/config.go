package email

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Transport selects the Sender implementation.
type Transport string

const (
	TransportLog   Transport = "log"
	TransportSES   Transport = "ses"
	TransportHTTP  Transport = "http"
	TransportKafka Transport = "kafka"
)

type Config struct {
	Transport Transport `mapstructure:"transport"`
	// From is the sender address. Required by every transport except log.
	From string `mapstructure:"from"`

	SES            SESConfig            `mapstructure:"ses"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit-breaker"`
}

type SESConfig struct {
	Region           string `mapstructure:"region"`
	ConfigurationSet string `mapstructure:"configuration-set"`
	// Endpoint overrides the AWS endpoint, e.g. for LocalStack.
	Endpoint string `mapstructure:"endpoint"`
}

// HTTPConfig targets a Postmark-compatible JSON email API. Connection
// settings live under clients.<Client>.
type HTTPConfig struct {
	Client        string `mapstructure:"client"`
	Path          string `mapstructure:"path"`
	Token         string `mapstructure:"token"`
	MessageStream string `mapstructure:"message-stream"`
}

type KafkaConfig struct {
	Topic string `mapstructure:"topic"`
}

type CircuitBreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32 `mapstructure:"failure-threshold"`
	// Timeout is how long the breaker stays open before a trial request.
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRequests uint32        `mapstructure:"max-requests"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("email"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load email config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid email config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Transport == "" {
		cfg.Transport = TransportLog
	}
	if cfg.HTTP.Client == "" {
		cfg.HTTP.Client = "email-api"
	}
	if cfg.HTTP.Path == "" {
		cfg.HTTP.Path = "/email"
	}
	if cfg.HTTP.MessageStream == "" {
		cfg.HTTP.MessageStream = "broadcast"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "newsletter.emails"
	}
	if cfg.CircuitBreaker.FailureThreshold == 0 {
		cfg.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.CircuitBreaker.Timeout <= 0 {
		cfg.CircuitBreaker.Timeout = 30 * time.Second
	}
	if cfg.CircuitBreaker.MaxRequests == 0 {
		cfg.CircuitBreaker.MaxRequests = 1
	}
}

func (c Config) validate() error {
	switch c.Transport {
	case TransportLog:
		return nil
	case TransportSES, TransportHTTP, TransportKafka:
	default:
		return fmt.Errorf("unknown transport %q, use log, ses, http or kafka", c.Transport)
	}
	if c.From == "" {
		return fmt.Errorf("from is required for transport %q", c.Transport)
	}
	if c.Transport == TransportHTTP && c.HTTP.Token == "" {
		return fmt.Errorf("http.token is required for transport %q", c.Transport)
	}
	return nil
}
