package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultEnvFile = ".env"

// LoadDotEnv copies variables from path (./.env when empty) into the process
// environment without overriding existing ones. A missing file reports
// loaded=false; a file that cannot be read or parsed is an error.
func LoadDotEnv(path string) (loaded bool, err error) {
	if path == "" {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load env file [%s]: %w", path, err)
	}
	return true, nil
}

// NewDotEnvModule loads ./.env when the module is built, before any
// provider reads the environment.
func NewDotEnvModule() fx.Option {
	loaded, err := LoadDotEnv("")
	if err != nil {
		return fx.Error(err)
	}

	return fx.Module("dotenv",
		fx.Invoke(func(log *zap.Logger) {
			log.Debug("dotenv", zap.String("path", defaultEnvFile), zap.Bool("loaded", loaded))
		}),
	)
}
