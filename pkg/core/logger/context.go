package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

// Get returns the request-scoped logger stored in ctx, or the global logger.
func Get(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.L()
	}
	if l, ok := ctx.Value(contextKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.L()
}

// With returns a copy of ctx carrying l.
func With(ctx context.Context, l *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, l)
}
