// Package security selects how callers are authenticated.
package security

import (
	"github.com/Sokol111/newsletter-publisher/pkg/security/token"
	"go.uber.org/fx"
)

type securityOptions struct {
	tokenConfig   *token.Config
	disable       bool
	testClaims    *token.Claims
	testValidator bool
}

// SecurityOption configures the security module.
type SecurityOption func(*securityOptions)

// WithTokenConfig uses cfg instead of viper.
func WithTokenConfig(cfg token.Config) SecurityOption {
	return func(opts *securityOptions) {
		opts.tokenConfig = &cfg
	}
}

// WithoutSecurity accepts every request as a wildcard caller.
func WithoutSecurity() SecurityOption {
	return func(opts *securityOptions) {
		opts.disable = true
	}
}

// WithTestClaims accepts every request as the given caller.
func WithTestClaims(claims token.Claims) SecurityOption {
	return func(opts *securityOptions) {
		opts.testClaims = &claims
	}
}

// WithTestTokens accepts tokens built by token.GenerateTestToken.
func WithTestTokens() SecurityOption {
	return func(opts *securityOptions) {
		opts.testValidator = true
	}
}

// NewSecurityModule provides token.Validator. Tests pick a bypass option;
// production reads security.token.
func NewSecurityModule(opts ...SecurityOption) fx.Option {
	o := &securityOptions{}
	for _, opt := range opts {
		opt(o)
	}

	switch {
	case o.testClaims != nil:
		return token.NewSecurityHandlerModule(token.WithTestClaims(*o.testClaims))
	case o.testValidator:
		return token.NewSecurityHandlerModule(token.WithTestValidator())
	case o.disable:
		return token.NewSecurityHandlerModule(token.WithDisableValidation())
	case o.tokenConfig != nil:
		return token.NewSecurityHandlerModule(token.WithTokenConfig(*o.tokenConfig))
	}
	return token.NewSecurityHandlerModule()
}
