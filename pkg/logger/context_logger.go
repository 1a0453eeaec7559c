package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	requestIDKey
)

// WithSessionID stores a frame session id in the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithRequestID stores an HTTP request id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// SessionID returns the session id stored in ctx, if any.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextLogger provides context-aware logging
type ContextLogger struct {
	logger *zap.SugaredLogger
}

// NewContextLogger creates a new context logger
func NewContextLogger(logger *zap.SugaredLogger) *ContextLogger {
	return &ContextLogger{
		logger: logger,
	}
}

// WithContext adds session, request and trace ids found in ctx.
func (cl *ContextLogger) WithContext(ctx context.Context) *zap.SugaredLogger {
	var fields []interface{}

	if id := SessionID(ctx); id != "" {
		fields = append(fields, "session_id", id)
	}
	if id := RequestID(ctx); id != "" {
		fields = append(fields, "request_id", id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, "trace_id", sc.TraceID().String())
	}

	if len(fields) == 0 {
		return cl.logger
	}
	return cl.logger.With(fields...)
}

// Base returns the underlying logger without context fields.
func (cl *ContextLogger) Base() *zap.SugaredLogger {
	return cl.logger
}
