package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or slog.Default when none is set.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithAccountID decorates the context logger with the authenticated account.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return WithContext(ctx, FromContext(ctx).With("account_id", accountID))
}
