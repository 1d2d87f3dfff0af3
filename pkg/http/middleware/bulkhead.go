package middleware

import (
	"context"
	"net/http"

	"github.com/Sokol111/newsletter-publisher/pkg/http/problems"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

func newBulkheadMiddleware(cfg BulkheadConfig, log *zap.Logger) func(http.Handler) http.Handler {
	if !enabled(cfg.Enabled) {
		return nil
	}
	sem := semaphore.NewWeighted(int64(cfg.MaxConcurrent))

	log.Info("HTTP bulkhead initialized",
		zap.Int("max-concurrent", cfg.MaxConcurrent),
		zap.Duration("timeout", cfg.Timeout),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbe(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
			err := sem.Acquire(ctx, 1)
			cancel()
			if err != nil {
				log.Warn("HTTP bulkhead full, rejecting request", requestFields(r)...)
				problems.Write(w, r, problems.ServiceUnavailable(ErrBulkheadFull.Error()+", please try again later"))
				return
			}
			defer sem.Release(1)

			next.ServeHTTP(w, r)
		})
	}
}
