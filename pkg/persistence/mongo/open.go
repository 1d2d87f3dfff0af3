package mongo

import (
	"context"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
	"go.uber.org/zap"
)

// Standalone is a connection owned by the caller instead of an fx lifecycle.
type Standalone struct {
	Admin
	TxManager persistence.TxManager
	client    *client
}

// Open connects and pings. Used by one-shot tools and integration tests.
func Open(ctx context.Context, log *zap.Logger, conf Config) (*Standalone, error) {
	applyDefaults(&conf)
	c, err := newMongo(log, conf)
	if err != nil {
		return nil, err
	}
	if err := c.connect(ctx); err != nil {
		_ = c.disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return &Standalone{Admin: c, TxManager: newTxManager(c, log), client: c}, nil
}

// Close disconnects the client.
func (s *Standalone) Close(ctx context.Context) error {
	return s.client.disconnect(ctx)
}
