package middleware

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrRequestTimeout     = errors.New("request timeout")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrBulkheadFull       = errors.New("too many concurrent requests")
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrPanic              = errors.New("panic recovered")
)

// Middleware is an HTTP middleware with an ordering priority. Lower
// priorities wrap higher ones, so they see the request first.
type Middleware struct {
	Priority int
	Handler  func(http.Handler) http.Handler
}

// GroupTag collects middlewares provided through fx.
const GroupTag = `group:"http_mw"`

// Chain wraps h with mws ordered by priority. Entries without a handler are
// skipped, which is how disabled middlewares are expressed.
func Chain(h http.Handler, mws []Middleware) http.Handler {
	sorted := make([]Middleware, 0, len(mws))
	for _, mw := range mws {
		if mw.Handler != nil {
			sorted = append(sorted, mw)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	for i := len(sorted) - 1; i >= 0; i-- {
		h = sorted[i].Handler(h)
	}
	return h
}

// isProbe reports whether r targets a health endpoint. Probes bypass
// load-shedding middlewares.
func isProbe(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/health/")
}

func requestFields(r *http.Request) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("query", r.URL.RawQuery),
		zap.String("remote_addr", r.RemoteAddr),
	}
}

// statusWriter records the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
