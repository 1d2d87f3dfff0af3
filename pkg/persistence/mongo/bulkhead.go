package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrBulkheadFull is returned when no slot frees up within the bulkhead timeout.
var ErrBulkheadFull = errors.New("mongo bulkhead is full")

// bulkhead limits concurrent collection operations so that a slow database
// does not pin every request goroutine.
type bulkhead struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	log     *zap.Logger
}

func newBulkhead(limit int, timeout time.Duration, log *zap.Logger) *bulkhead {
	log.Info("mongo bulkhead initialized",
		zap.Int("limit", limit),
		zap.Duration("timeout", timeout),
	)
	return &bulkhead{
		sem:     semaphore.NewWeighted(int64(limit)),
		timeout: timeout,
		log:     log,
	}
}

func (b *bulkhead) middleware(ctx context.Context, next func(context.Context) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.log.Warn("mongo bulkhead acquisition timed out", zap.Duration("timeout", b.timeout))
		return fmt.Errorf("%w: waited %s", ErrBulkheadFull, b.timeout)
	}
	defer b.sem.Release(1)

	return next(ctx)
}
