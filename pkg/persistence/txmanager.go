// Package persistence holds the storage contracts shared by the newsletter
// repositories; pkg/persistence/mongo implements them.
package persistence

import (
	"context"
	"errors"
)

// ErrEntityNotFound is wrapped by every repository lookup that misses.
var ErrEntityNotFound = errors.New("entity not found")

// TxManager runs fn atomically. Writes made through txCtx commit together or
// not at all. fn may be invoked again when the backend asks for a retry.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(txCtx context.Context) (any, error)) (any, error)
}
