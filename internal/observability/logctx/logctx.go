// Package logctx carries a request-scoped logger through context so handlers
// and services share one logger carrying trace ids and request fields.
package logctx

import (
	"context"

	"github.com/freshmart/orderflow/internal/observability"
)

type ctxKey struct{}

// With returns a context carrying the logger. A nil logger leaves the context
// unchanged.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From returns the context logger, or nil when none was attached.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	if logger, ok := ctx.Value(ctxKey{}).(observability.Logger); ok {
		return logger
	}
	return nil
}

// FromOr prefers the context logger and falls back to the given one. It never
// returns nil: with no logger on either side the caller gets a no-op.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return observability.NopLogger()
}
