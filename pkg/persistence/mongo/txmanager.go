package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
)

const maxTxAttempts = 3

type sessionStarter interface {
	StartSession() (Session, error)
}

type txManager struct {
	sessions sessionStarter
	log      *zap.Logger
}

func newTxManager(sessions sessionStarter, log *zap.Logger) persistence.TxManager {
	return &txManager{sessions: sessions, log: log}
}

func isTransientError(err error) bool {
	var se mongodriver.ServerError
	return errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError")
}

// WithTransaction runs fn in a multi-document transaction. The driver already
// retries commit; whole transactions that fail with a transient label are
// retried here up to maxTxAttempts times. fn may therefore run more than once.
func (t *txManager) WithTransaction(ctx context.Context, fn func(txCtx context.Context) (any, error)) (any, error) {
	var lastErr error

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, err := t.runOnce(ctx, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isTransientError(err) {
			return nil, err
		}
		t.log.Warn("transient transaction error",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxTxAttempts),
		)
	}

	return nil, fmt.Errorf("transaction failed after %d attempts: %w", maxTxAttempts, lastErr)
}

func (t *txManager) runOnce(ctx context.Context, fn func(txCtx context.Context) (any, error)) (any, error) {
	session, err := t.sessions.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	return session.WithTransaction(ctx, fn)
}
