package middleware

import (
	"net/http"

	"github.com/Sokol111/newsletter-publisher/pkg/http/problems"
	"golang.org/x/time/rate"
)

func newRateLimitMiddleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if !enabled(cfg.Enabled) {
		return nil
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbe(r) || limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "1")
			problems.Write(w, r, problems.TooManyRequests(ErrRateLimitExceeded.Error()+", please try again later"))
		})
	}
}
