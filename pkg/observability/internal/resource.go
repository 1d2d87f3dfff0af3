// Package internal holds what the tracing and metrics providers share.
package internal

import (
	"context"
	"net/http"
	"strings"

	appconfig "github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// Probe and scrape traffic would drown out the admin endpoints.
var uninstrumentedPrefixes = []string{"/health/", "/metrics"}

// NewResource identifies this instance; the instance ID matches the one the
// delivery worker leases outbox tasks under.
func NewResource(ctx context.Context, app appconfig.AppConfig) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithProcess(),
		resource.WithAttributes(
			semconv.ServiceName(app.ServiceName),
			semconv.ServiceVersion(app.ServiceVersion),
			semconv.ServiceInstanceID(app.InstanceID),
			semconv.DeploymentEnvironmentName(app.Environment.String()),
		),
	)
}

// Instrumented reports whether r gets a span and HTTP metrics.
func Instrumented(r *http.Request) bool {
	for _, prefix := range uninstrumentedPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	return true
}
