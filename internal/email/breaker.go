package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// breakerSender stops calling a failing transport for a while. Rejected
// calls return ErrSenderUnavailable so the task is retried later without
// losing an attempt.
type breakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

func newBreakerSender(next Sender, name string, cfg CircuitBreakerConfig, log *zap.Logger) *breakerSender {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A cancelled send says nothing about the transport's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("email circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &breakerSender{next: next, cb: cb}
}

func (s *breakerSender) Send(ctx context.Context, msg Message) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s circuit breaker %s", ErrSenderUnavailable, s.cb.Name(), s.cb.State())
	}
	return err
}
