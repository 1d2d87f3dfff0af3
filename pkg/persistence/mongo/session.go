package mongo

import (
	"context"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Session is the part of *mongodriver.Session the transaction manager uses.
type Session interface {
	// WithTransaction runs fn in a transaction. fn may run more than once.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) (any, error), opts ...options.Lister[options.TransactionOptions]) (any, error)
	EndSession(ctx context.Context)
}

var _ Session = (*mongodriver.Session)(nil)
