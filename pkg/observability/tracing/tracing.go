// Package tracing provides the process-wide trace.TracerProvider.
package tracing

import (
	"context"

	appconfig "github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"github.com/Sokol111/newsletter-publisher/pkg/core/health"
	otelconfig "github.com/Sokol111/newsletter-publisher/pkg/observability/config"
	otelinternal "github.com/Sokol111/newsletter-publisher/pkg/observability/internal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type params struct {
	fx.In
	Lc         fx.Lifecycle
	Log        *zap.Logger
	Conf       otelconfig.Config
	App        appconfig.AppConfig
	Components health.ComponentManager
}

// NewTracingModule provides trace.TracerProvider. Disabled tracing yields a
// noop provider, so the publish and delivery spans never need a nil check.
func NewTracingModule() fx.Option {
	return fx.Provide(provide)
}

func provide(p params) (trace.TracerProvider, error) {
	if !p.Conf.Tracing.Enabled {
		p.Log.Info("tracing disabled")
		return noop.NewTracerProvider(), nil
	}

	ctx := context.Background()
	res, err := otelinternal.NewResource(ctx, p.App)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.Conf.Tracing.SampleRatio))),
	}
	if endpoint := p.Conf.OtelCollectorEndpoint; endpoint != "" {
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	} else {
		// Spans still carry IDs into the logs.
		p.Log.Info("tracing enabled without a collector endpoint, spans are not exported")
	}
	tp := sdktrace.NewTracerProvider(opts...)

	ready := p.Components.AddComponent(otelconfig.TracingComponentName)
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetTracerProvider(tp)
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
			p.Log.Info("tracing started",
				zap.String("endpoint", p.Conf.OtelCollectorEndpoint),
				zap.Float64("sample_ratio", p.Conf.Tracing.SampleRatio),
			)
			ready()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, otelconfig.DefaultShutdownTimeout)
			defer cancel()
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}
