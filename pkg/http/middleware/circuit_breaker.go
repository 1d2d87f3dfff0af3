package middleware

import (
	"errors"
	"net/http"

	"github.com/Sokol111/newsletter-publisher/pkg/http/problems"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var errServerFailure = errors.New("server error")

func newCircuitBreaker(cfg CircuitBreakerConfig, log *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "http-server",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// newCircuitBreakerMiddleware opens after consecutive 5xx responses and then
// rejects requests with 503 until the breaker half-opens.
func newCircuitBreakerMiddleware(cfg CircuitBreakerConfig, log *zap.Logger) func(http.Handler) http.Handler {
	if !enabled(cfg.Enabled) {
		return nil
	}
	cb := newCircuitBreaker(cfg, log)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbe(r) {
				next.ServeHTTP(w, r)
				return
			}

			_, err := cb.Execute(func() (any, error) {
				sw := newStatusWriter(w)
				next.ServeHTTP(sw, r)
				if sw.status >= http.StatusInternalServerError {
					return nil, errServerFailure
				}
				return nil, nil
			})

			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				problems.Write(w, r, problems.ServiceUnavailable(ErrCircuitBreakerOpen.Error()))
			}
		})
	}
}
