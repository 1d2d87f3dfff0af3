package token

import (
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type tokenOptions struct {
	config           *Config
	disable          bool
	testClaims       *Claims
	useTestValidator bool
}

// TokenOption configures the token module.
type TokenOption func(*tokenOptions)

// WithTokenConfig uses cfg instead of viper.
func WithTokenConfig(cfg Config) TokenOption {
	return func(opts *tokenOptions) {
		opts.config = &cfg
	}
}

// WithDisableValidation accepts every token as a wildcard caller.
func WithDisableValidation() TokenOption {
	return func(opts *tokenOptions) {
		opts.disable = true
	}
}

// WithTestClaims accepts every token as the given caller.
func WithTestClaims(claims Claims) TokenOption {
	return func(opts *tokenOptions) {
		opts.testClaims = &claims
	}
}

// WithTestValidator accepts tokens from GenerateTestToken.
func WithTestValidator() TokenOption {
	return func(opts *tokenOptions) {
		opts.useTestValidator = true
	}
}

// NewSecurityHandlerModule provides the Validator used by HTTP handlers.
//
//	token.NewSecurityHandlerModule()                        // PASETO from security.token
//	token.NewSecurityHandlerModule(token.WithTestValidator()) // e2e tests
func NewSecurityHandlerModule(opts ...TokenOption) fx.Option {
	o := &tokenOptions{}
	for _, opt := range opts {
		opt(o)
	}

	switch {
	case o.testClaims != nil:
		claims := *o.testClaims
		return fx.Provide(func() Validator { return newStaticValidator(claims) })
	case o.useTestValidator:
		return fx.Provide(newTestValidator)
	case o.disable:
		return fx.Provide(newNoopValidator)
	}

	return fx.Provide(func(v *viper.Viper, log *zap.Logger) (Validator, error) {
		cfg := Config{}
		if o.config != nil {
			cfg = *o.config
		} else {
			var err error
			if cfg, err = newConfig(v); err != nil {
				return nil, err
			}
		}
		log.Info("token validation enabled", zap.String("issuer", cfg.Issuer))
		return newPasetoValidator(cfg)
	})
}
