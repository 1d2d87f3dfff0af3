package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	envConfigFile = "CONFIG_FILE"
	envConfigDir  = "CONFIG_DIR"
	envConfigName = "CONFIG_NAME"

	defaultConfigDir = "./configs"
)

type viperConfig struct {
	configPath   *string
	noConfigFile bool
}

// ViperOption configures the viper module.
type ViperOption func(*viperConfig)

// WithConfigPath reads configuration from the given file.
func WithConfigPath(path string) ViperOption {
	return func(cfg *viperConfig) {
		cfg.configPath = &path
	}
}

// WithoutConfigFile leaves viper backed by the environment only.
func WithoutConfigFile() ViperOption {
	return func(cfg *viperConfig) {
		cfg.noConfigFile = true
	}
}

// FilePath is the resolved configuration file. Empty means none.
type FilePath string

// NewViperModule provides *viper.Viper.
//
// The file is resolved in order: WithConfigPath, CONFIG_FILE,
// CONFIG_DIR/CONFIG_NAME.yaml (defaults ./configs/config.{APP_ENV}.yaml).
// A missing default file is not an error; an explicit one is.
func NewViperModule(opts ...ViperOption) fx.Option {
	cfg := &viperConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Module("viper",
		fx.Provide(
			func() (FilePath, error) { return resolveConfigPath(cfg) },
			newViper,
		),
		fx.Invoke(func(log *zap.Logger, v *viper.Viper) {
			log.Info("configuration loaded",
				zap.String("configFile", v.ConfigFileUsed()),
				zap.Int("settingsCount", len(v.AllSettings())),
			)
		}),
	)
}

// Load resolves and reads configuration outside of an fx graph, for
// decisions that shape the graph itself.
func Load(opts ...ViperOption) (*viper.Viper, error) {
	cfg := &viperConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	path, err := resolveConfigPath(cfg)
	if err != nil {
		return nil, err
	}
	return newViper(path)
}

func resolveConfigPath(cfg *viperConfig) (FilePath, error) {
	switch {
	case cfg.noConfigFile:
		return "", nil
	case cfg.configPath != nil:
		return FilePath(*cfg.configPath), nil
	}

	if file := os.Getenv(envConfigFile); file != "" {
		return FilePath(file), nil
	}

	dir := os.Getenv(envConfigDir)
	if dir == "" {
		dir = defaultConfigDir
	}
	name := os.Getenv(envConfigName)
	if name == "" {
		name = "config." + os.Getenv(envAppEnv)
	}

	path := filepath.Join(dir, name+".yaml")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat config file [%s]: %w", path, err)
	}
	return FilePath(path), nil
}

// newViper must not depend on the logger: logger configuration is read from viper.
func newViper(configFile FilePath) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile == "" {
		return v, nil
	}

	v.SetConfigFile(string(configFile))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file [%s]: %w", configFile, err)
	}
	return v, nil
}
