// Package metrics provides the process-wide metric.MeterProvider.
package metrics

import (
	"context"
	"errors"

	appconfig "github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"github.com/Sokol111/newsletter-publisher/pkg/core/health"
	otelconfig "github.com/Sokol111/newsletter-publisher/pkg/observability/config"
	otelinternal "github.com/Sokol111/newsletter-publisher/pkg/observability/internal"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Publish requests fan out to every subscriber inside one transaction, so
// they run far longer than the default histogram buckets expect.
var requestDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

type params struct {
	fx.In
	Lc         fx.Lifecycle
	Log        *zap.Logger
	Conf       otelconfig.Config
	App        appconfig.AppConfig
	Components health.ComponentManager
}

// NewMetricsModule provides metric.MeterProvider, a noop one when disabled.
func NewMetricsModule() fx.Option {
	return fx.Provide(provide)
}

func provide(p params) (metric.MeterProvider, error) {
	if !p.Conf.Metrics.Enabled {
		p.Log.Info("metrics disabled")
		return metricnoop.NewMeterProvider(), nil
	}
	if p.Conf.OtelCollectorEndpoint == "" {
		return nil, errors.New("metrics: otel-collector-endpoint is required")
	}

	ctx := context.Background()
	res, err := otelinternal.NewResource(ctx, p.App)
	if err != nil {
		return nil, err
	}
	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(p.Conf.OtelCollectorEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	mp := newMeterProvider(res, sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(p.Conf.Metrics.Interval)))

	ready := p.Components.AddComponent(otelconfig.MetricsComponentName)
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetMeterProvider(mp)
			err := otelruntime.Start(
				otelruntime.WithMeterProvider(mp),
				otelruntime.WithMinimumReadMemStatsInterval(otelconfig.DefaultRuntimeStatsInterval),
			)
			if err != nil {
				p.Log.Warn("runtime metrics unavailable", zap.Error(err))
			}
			p.Log.Info("metrics started",
				zap.String("endpoint", p.Conf.OtelCollectorEndpoint),
				zap.Duration("interval", p.Conf.Metrics.Interval),
			)
			ready()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, otelconfig.DefaultShutdownTimeout)
			defer cancel()
			return mp.Shutdown(ctx)
		},
	})
	return mp, nil
}

func newMeterProvider(res *resource.Resource, reader sdkmetric.Reader) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "http.server.request.duration"},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: requestDurationBuckets}},
		)),
	)
}
