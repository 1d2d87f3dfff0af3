package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	envAppEnv            = "APP_ENV"
	envAppServiceName    = "APP_SERVICE_NAME"
	envAppServiceVersion = "APP_SERVICE_VERSION"
	envAppInstanceID     = "APP_INSTANCE_ID"
)

// Environment is the deployment environment the process runs in.
type Environment string

const (
	EnvStandalone  Environment = "standalone"
	EnvDevelopment Environment = "dev"
	EnvProduction  Environment = "pro"
)

// IsValid reports whether e is one of the known environments.
func (e Environment) IsValid() bool {
	switch e {
	case EnvStandalone, EnvDevelopment, EnvProduction:
		return true
	}
	return false
}

func (e Environment) String() string {
	return string(e)
}

// AppConfig identifies the running process.
type AppConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    Environment
	// InstanceID distinguishes replicas of the same service. Delivery workers
	// stamp it on the outbox tasks they lease.
	InstanceID string
}

type appConfigOptions struct {
	config *AppConfig
}

// AppConfigOption configures the app config module.
type AppConfigOption func(*appConfigOptions)

// WithAppConfig supplies a static AppConfig instead of reading the environment.
func WithAppConfig(cfg AppConfig) AppConfigOption {
	return func(o *appConfigOptions) {
		o.config = &cfg
	}
}

// NewAppConfigModule provides AppConfig.
//
// Required environment variables:
//   - APP_ENV: standalone, dev or pro
//   - APP_SERVICE_NAME
//   - APP_SERVICE_VERSION
//
// APP_INSTANCE_ID is optional; the default is the hostname plus a random
// suffix, so two processes on one host never share outbox leases.
func NewAppConfigModule(opts ...AppConfigOption) fx.Option {
	o := &appConfigOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("appconfig",
		fx.Provide(func() (AppConfig, error) {
			if o.config != nil {
				return withInstanceID(*o.config), nil
			}
			return newAppConfig()
		}),
		fx.Invoke(func(log *zap.Logger, conf AppConfig) {
			log.Info("loaded application configuration",
				zap.String("service", conf.ServiceName),
				zap.String("version", conf.ServiceVersion),
				zap.String("environment", conf.Environment.String()),
				zap.String("instance", conf.InstanceID),
			)
		}),
	)
}

func newAppConfig() (AppConfig, error) {
	env := Environment(os.Getenv(envAppEnv))
	if !env.IsValid() {
		return AppConfig{}, fmt.Errorf("%s must be one of standalone, dev, pro: got %q", envAppEnv, env)
	}

	serviceName := os.Getenv(envAppServiceName)
	if serviceName == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppServiceName)
	}

	serviceVersion := os.Getenv(envAppServiceVersion)
	if serviceVersion == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppServiceVersion)
	}

	return withInstanceID(AppConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    env,
		InstanceID:     os.Getenv(envAppInstanceID),
	}), nil
}

func withInstanceID(cfg AppConfig) AppConfig {
	if cfg.InstanceID != "" {
		return cfg
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		cfg.InstanceID = host + "-" + uuid.NewString()[:8]
		return cfg
	}
	cfg.InstanceID = uuid.NewString()
	return cfg
}
