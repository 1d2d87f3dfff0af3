package token

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the PASETO verification settings from security.token.
type Config struct {
	// PublicKey is the hex-encoded Ed25519 public key of the token issuer.
	PublicKey string `mapstructure:"public-key"`
	// Issuer, when set, must match the token's iss claim.
	Issuer string `mapstructure:"issuer"`
	// Audience, when set, must match the token's aud claim.
	Audience string `mapstructure:"audience"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	sub := v.Sub("security.token")
	if sub == nil {
		return cfg, fmt.Errorf("security.token configuration section is required")
	}
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load token config: %w", err)
	}
	if cfg.PublicKey == "" {
		return cfg, fmt.Errorf("security.token.public-key is required")
	}
	return cfg, nil
}
