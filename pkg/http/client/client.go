package client

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout             = 10 * time.Second
	DefaultMaxIdleConnsPerHost = 20
	DefaultIdleConnTimeout     = 90 * time.Second
	// DefaultMaxConnLifetime rotates connections so DNS changes are picked up.
	DefaultMaxConnLifetime = 60 * time.Second
	// MaxConnRetries bounds immediate retries on dead pooled connections.
	MaxConnRetries = 5
)

// Config describes an outbound HTTP client, read from clients.<name>:
//
//	clients:
//	  email-gateway:
//	    base-url: http://mailer:8080
//	    timeout: 5s
//	    max-conn-lifetime: 60s
//
// Omitted fields get defaults. A zero duration disables the limit.
type Config struct {
	BaseURL             string         `mapstructure:"base-url"`
	Timeout             *time.Duration `mapstructure:"timeout"`
	MaxIdleConnsPerHost *int           `mapstructure:"max-idle-conns-per-host"`
	IdleConnTimeout     *time.Duration `mapstructure:"idle-conn-timeout"`
	MaxConnLifetime     *time.Duration `mapstructure:"max-conn-lifetime"`
}

// LoadConfig reads and validates clients.<name>.
func LoadConfig(v *viper.Viper, name string) (Config, error) {
	var cfg Config
	if err := v.UnmarshalKey("clients."+name, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal client config %q: %w", name, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid client config %q: %w", name, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// New builds an instrumented client. Dead pooled connections are retried
// transparently; status-based retries are left to the caller.
func New(cfg Config, tp trace.TracerProvider, mp metric.MeterProvider) *http.Client {
	cfg.applyDefaults()

	dialer := &net.Dialer{Timeout: 5 * time.Second}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: *cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     *cfg.IdleConnTimeout,
		DialContext:         expiringDial(dialer.DialContext, *cfg.MaxConnLifetime, time.Now),
	}

	retrying := &retryTransport{
		base:       transport,
		transport:  transport,
		maxRetries: min(*cfg.MaxIdleConnsPerHost, MaxConnRetries),
	}

	return &http.Client{
		Timeout: *cfg.Timeout,
		Transport: otelhttp.NewTransport(retrying,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
		),
	}
}

func (c *Config) applyDefaults() {
	if c.Timeout == nil {
		c.Timeout = lo.ToPtr(DefaultTimeout)
	}
	if c.MaxIdleConnsPerHost == nil {
		c.MaxIdleConnsPerHost = lo.ToPtr(DefaultMaxIdleConnsPerHost)
	}
	if c.IdleConnTimeout == nil {
		c.IdleConnTimeout = lo.ToPtr(DefaultIdleConnTimeout)
	}
	if c.MaxConnLifetime == nil {
		c.MaxConnLifetime = lo.ToPtr(DefaultMaxConnLifetime)
	}
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base-url is required")
	}
	return nil
}
