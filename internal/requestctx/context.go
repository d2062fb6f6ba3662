// Package requestctx carries the request-scoped logger and trace ID.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	traceIDKey
)

var nop = zap.NewNop()

// WithLogger stores logger on ctx. A nil logger stores a no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = nop
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request logger, or a no-op logger when none is set.
func Logger(ctx context.Context) *zap.Logger {
	if logger, ok := LoggerFrom(ctx); ok {
		return logger
	}
	return nop
}

// LoggerFrom reports the request logger and whether one was set.
func LoggerFrom(ctx context.Context) (*zap.Logger, bool) {
	logger, ok := ctx.Value(loggerKey).(*zap.Logger)
	return logger, ok && logger != nil
}

// WithTraceID stores the trace ID of the server span.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID returns the stored trace ID, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}
