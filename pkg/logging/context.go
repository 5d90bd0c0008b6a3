package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeySessionID contextKey = "session_id"
	contextKeyOperation contextKey = "operation"
	contextKeyStartTime contextKey = "start_time"
)

// RequestIDHeader carries a caller supplied request ID over HTTP
const RequestIDHeader = "X-Request-ID"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

func GetRequestID(ctx context.Context) string {
	return value[string](ctx, contextKeyRequestID)
}

// WithSessionID tags ctx with the widget session the request belongs to
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID, sessionID)
}

func GetSessionID(ctx context.Context) string {
	return value[string](ctx, contextKeySessionID)
}

// WithOperation names the RPC method or job ctx is serving
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextKeyOperation, operation)
}

func GetOperation(ctx context.Context) string {
	return value[string](ctx, contextKeyOperation)
}

func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, contextKeyStartTime, startTime)
}

func GetStartTime(ctx context.Context) time.Time {
	return value[time.Time](ctx, contextKeyStartTime)
}

// GetDuration is the time elapsed since the start time in ctx, or zero
func GetDuration(ctx context.Context) time.Duration {
	start := GetStartTime(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

func value[T any](ctx context.Context, key contextKey) T {
	v, _ := ctx.Value(key).(T)
	return v
}

// NewRequestContext ensures a request ID is present and stamps the operation
// and start time
func NewRequestContext(ctx context.Context, operation string) context.Context {
	if GetRequestID(ctx) == "" {
		ctx = WithRequestID(ctx, GenerateID())
	}
	if operation != "" {
		ctx = WithOperation(ctx, operation)
	}
	return WithStartTime(ctx, time.Now())
}

// WithRequestAttrs returns logger annotated with whatever request metadata
// ctx carries
func WithRequestAttrs(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if ctx == nil {
		return logger
	}

	var attrs []any
	for _, kv := range []struct {
		key string
		val string
	}{
		{"request_id", GetRequestID(ctx)},
		{"session_id", GetSessionID(ctx)},
		{"operation", GetOperation(ctx)},
	} {
		if kv.val != "" {
			attrs = append(attrs, slog.String(kv.key, kv.val))
		}
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

// GenerateID returns a random UUID for requests and sessions
func GenerateID() string {
	return uuid.NewString()
}
