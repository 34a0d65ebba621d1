package common

import "context"

type contextKey int

const correlationIDKey contextKey = iota

// WithCorrelationID stores the request correlation ID in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation ID stored in ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// LoggerFromContext returns logger tagged with the correlation ID in ctx, if any.
func LoggerFromContext(ctx context.Context, logger *Logger) *Logger {
	if logger == nil {
		return nil
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		return logger.WithCorrelationId(id)
	}
	return logger
}
