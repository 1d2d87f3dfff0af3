package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHTTPMiddleware_TracesAndTagsLogger(t *testing.T) {
	// Given
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	core, logs := observer.New(zapcore.InfoLevel)

	otelMw := newHTTPMiddleware(tp, metricnoop.NewMeterProvider())
	traceMw := newTraceLoggerMiddleware(zap.New(core))
	assert.Less(t, otelMw.Priority, traceMw.Priority)

	h := otelMw.Handler(traceMw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Get(r.Context()).Info("handled")
		w.WriteHeader(http.StatusNoContent)
	})))

	// When
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/newsletters", nil))

	// Then
	assert.Equal(t, http.StatusNoContent, w.Code)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /admin/newsletters", spans[0].Name())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), logs.All()[0].ContextMap()["trace_id"])
}

func TestHTTPMiddleware_SkipsProbes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	h := newHTTPMiddleware(tp, metricnoop.NewMeterProvider()).Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Empty(t, recorder.Ended())
}
