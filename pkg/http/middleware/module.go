package middleware

import (
	"net/http"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Priorities of the built-in middlewares (lower runs first):
//
//	10 - Recovery       - converts panics to 500
//	20 - Observability  - otelhttp spans and metrics (observability module)
//	30 - Logger         - request-scoped logger and access log
//	40 - RateLimit      - limits requests per second
//	50 - Bulkhead       - limits concurrent requests
//	60 - Timeout        - bounds request handling time
//	70 - CircuitBreaker - sheds load after repeated 5xx
const (
	PriorityRecovery       = 10
	PriorityObservability  = 20
	PriorityLogger         = 30
	PriorityRateLimit      = 40
	PriorityBulkhead       = 50
	PriorityTimeout        = 60
	PriorityCircuitBreaker = 70
)

type middlewareOptions struct {
	config *Config
}

// Option configures the middleware module.
type Option func(*middlewareOptions)

// WithMiddlewareConfig uses cfg instead of viper.
func WithMiddlewareConfig(cfg Config) Option {
	return func(o *middlewareOptions) {
		o.config = &cfg
	}
}

// NewMiddlewareModule provides the built-in middlewares to the http_mw group.
func NewMiddlewareModule(opts ...Option) fx.Option {
	o := &middlewareOptions{}
	for _, opt := range opts {
		opt(o)
	}

	provide := func(priority int, build func(Config, *zap.Logger) func(http.Handler) http.Handler) any {
		return fx.Annotate(
			func(cfg Config, log *zap.Logger) Middleware {
				return Middleware{Priority: priority, Handler: build(cfg, log)}
			},
			fx.ResultTags(GroupTag),
		)
	}

	return fx.Module("http-middleware",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				if o.config != nil {
					cfg := *o.config
					cfg.setDefaults()
					return cfg, nil
				}
				return newConfig(v)
			},
			provide(PriorityRecovery, func(Config, *zap.Logger) func(http.Handler) http.Handler {
				return recoveryMiddleware
			}),
			provide(PriorityLogger, func(_ Config, log *zap.Logger) func(http.Handler) http.Handler {
				return loggerMiddleware(log)
			}),
			provide(PriorityRateLimit, func(cfg Config, _ *zap.Logger) func(http.Handler) http.Handler {
				return newRateLimitMiddleware(cfg.RateLimit)
			}),
			provide(PriorityBulkhead, func(cfg Config, log *zap.Logger) func(http.Handler) http.Handler {
				return newBulkheadMiddleware(cfg.Bulkhead, log)
			}),
			provide(PriorityTimeout, func(cfg Config, _ *zap.Logger) func(http.Handler) http.Handler {
				return newTimeoutMiddleware(cfg.Timeout)
			}),
			provide(PriorityCircuitBreaker, func(cfg Config, log *zap.Logger) func(http.Handler) http.Handler {
				return newCircuitBreakerMiddleware(cfg.CircuitBreaker, log)
			}),
		),
	)
}
