// Package observability wires OpenTelemetry tracing and metrics and exposes
// them to the HTTP pipeline.
//
//	observability.NewObservabilityModule()
//
//	// tests
//	observability.NewObservabilityModule(
//	    observability.WithoutTracing(),
//	    observability.WithoutMetrics(),
//	)
package observability

import (
	"net/http"

	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"github.com/Sokol111/newsletter-publisher/pkg/http/middleware"
	"github.com/Sokol111/newsletter-publisher/pkg/observability/config"
	"github.com/Sokol111/newsletter-publisher/pkg/observability/internal"
	"github.com/Sokol111/newsletter-publisher/pkg/observability/metrics"
	"github.com/Sokol111/newsletter-publisher/pkg/observability/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PriorityTraceLogger runs right after the otelhttp span is started.
const PriorityTraceLogger = middleware.PriorityObservability + 5

type observabilityOptions struct {
	config         *config.Config
	disableTracing bool
	disableMetrics bool
}

// Option configures the observability module.
type Option func(*observabilityOptions)

// WithConfig uses cfg instead of viper.
func WithConfig(cfg config.Config) Option {
	return func(opts *observabilityOptions) {
		opts.config = &cfg
	}
}

// WithoutTracing disables tracing regardless of configuration.
func WithoutTracing() Option {
	return func(opts *observabilityOptions) {
		opts.disableTracing = true
	}
}

// WithoutMetrics disables metrics regardless of configuration.
func WithoutMetrics() Option {
	return func(opts *observabilityOptions) {
		opts.disableMetrics = true
	}
}

// NewObservabilityModule provides trace.TracerProvider, metric.MeterProvider
// and the HTTP middlewares that use them.
func NewObservabilityModule(opts ...Option) fx.Option {
	o := &observabilityOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("observability",
		configModule(o),
		tracing.NewTracingModule(),
		metrics.NewMetricsModule(),
		fx.Provide(
			fx.Annotate(newHTTPMiddleware, fx.ResultTags(middleware.GroupTag)),
			fx.Annotate(newTraceLoggerMiddleware, fx.ResultTags(middleware.GroupTag)),
		),
	)
}

func configModule(o *observabilityOptions) fx.Option {
	return config.NewObservabilityConfigModule(config.Overrides{
		Static:         o.config,
		DisableTracing: o.disableTracing,
		DisableMetrics: o.disableMetrics,
	})
}

func newHTTPMiddleware(tp trace.TracerProvider, mp metric.MeterProvider) middleware.Middleware {
	return middleware.Middleware{
		Priority: middleware.PriorityObservability,
		Handler: func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "http.server",
				otelhttp.WithTracerProvider(tp),
				otelhttp.WithMeterProvider(mp),
				otelhttp.WithFilter(internal.Instrumented),
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					if r.Pattern != "" {
						return r.Pattern
					}
					return r.Method + " " + r.URL.Path
				}),
			)
		},
	}
}

// newTraceLoggerMiddleware stores a logger carrying trace_id and span_id in
// the request context.
func newTraceLoggerMiddleware(log *zap.Logger) middleware.Middleware {
	return middleware.Middleware{
		Priority: PriorityTraceLogger,
		Handler: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				traceID, spanID := tracing.SpanIDs(r.Context())
				if traceID != "" {
					l := log.With(zap.String("trace_id", traceID), zap.String("span_id", spanID))
					r = r.WithContext(logger.With(r.Context(), l))
				}
				next.ServeHTTP(w, r)
			})
		},
	}
}
