package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for the request id
	RequestIDKey contextKey = "request_id"
	// ConnectorIDKey is the context key for the connector instance id
	ConnectorIDKey contextKey = "connector_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and returns the enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithConnectorID stores the connector id and returns the enriched logger
func WithConnectorID(ctx context.Context, logger *zap.Logger, connectorID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, ConnectorIDKey, connectorID)
	enriched := logger.With(zap.String("connector_id", connectorID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves the request id from context
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

// GetConnectorID retrieves the connector id from context
func GetConnectorID(ctx context.Context) string {
	connectorID, _ := ctx.Value(ConnectorIDKey).(string)
	return connectorID
}

// WithTraceContext adds trace_id and span_id of the active span. The logger
// is returned unchanged when ctx carries no valid span.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// L returns the context logger with the trace ids of the active span. Request
// and connector ids are already attached by WithRequestID and WithConnectorID.
//
//	logger.L(ctx).Info("batch accepted", zap.Int("messages", n))
func L(ctx context.Context) *zap.Logger {
	return WithTraceContext(ctx, FromContext(ctx))
}
