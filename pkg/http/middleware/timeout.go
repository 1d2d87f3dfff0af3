package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"github.com/Sokol111/newsletter-publisher/pkg/http/problems"
	"go.uber.org/zap"
)

// newTimeoutMiddleware puts a deadline on the request context. Handlers are
// expected to honour it; when one returns after the deadline without writing
// a response, a 504 problem is written on its behalf.
func newTimeoutMiddleware(cfg TimeoutConfig) func(http.Handler) http.Handler {
	if !enabled(cfg.Enabled) {
		return nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbe(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), cfg.RequestTimeout)
			defer cancel()

			sw := newStatusWriter(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(sw, r)

			if !sw.wroteHeader && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logger.Get(ctx).Warn("HTTP request timeout",
					append(requestFields(r), zap.Duration("timeout", cfg.RequestTimeout))...)
				problems.Write(sw, r, problems.GatewayTimeout(ErrRequestTimeout.Error()))
			}
		})
	}
}
