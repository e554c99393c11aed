// Package appctx stashes a logger and a request trace id on a
// context.Context so deeply nested calls (body pipeline, handler
// processing, WebDAV operations) can log without threading a logger
// argument through every signature.
package appctx

import (
	"context"

	"github.com/rs/zerolog"
)

type traceKey struct{}

// WithLogger returns a context carrying l, retrievable with GetLogger.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// GetLogger returns the logger stored in ctx, or a disabled logger if none
// was stored.
func GetLogger(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithTrace returns a context carrying the connection/request trace id t.
func WithTrace(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// GetTrace returns the trace id stored in ctx, or "" if none was stored.
func GetTrace(ctx context.Context) string {
	if t, ok := ctx.Value(traceKey{}).(string); ok {
		return t
	}
	return ""
}
