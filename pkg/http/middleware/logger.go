package middleware

import (
	"net/http"
	"time"

	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"go.uber.org/zap"
)

// loggerMiddleware stores a request-scoped logger in the context and logs
// each completed request at debug level, or warn for 5xx.
func loggerMiddleware(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)

			log := logger.Get(r.Context())
			if log == zap.L() {
				log = base
			}
			r = r.WithContext(logger.With(r.Context(), log))

			next.ServeHTTP(sw, r)

			fields := append(requestFields(r),
				zap.Int("status", sw.status),
				zap.Duration("latency", time.Since(start)),
				zap.String("user_agent", r.UserAgent()),
			)
			if sw.status >= http.StatusInternalServerError {
				log.Warn("request failed", fields...)
				return
			}
			log.Debug("request handled", fields...)
		})
	}
}
