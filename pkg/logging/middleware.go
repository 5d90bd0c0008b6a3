package logging

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// RequestInterceptor logs the lifecycle of inbound HTTP requests
type RequestInterceptor struct {
	logger *slog.Logger
}

func NewRequestInterceptor(logger *slog.Logger) *RequestInterceptor {
	return &RequestInterceptor{logger: logger}
}

// HTTPMiddleware tags each request with an ID, logs its outcome and turns
// handler panics into a 500. A request ID supplied in the X-Request-ID
// header is reused and echoed back.
func (r *RequestInterceptor) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		if id := req.Header.Get(RequestIDHeader); id != "" {
			ctx = WithRequestID(ctx, id)
		}
		ctx = NewRequestContext(ctx, req.Method+" "+req.URL.Path)
		requestID := GetRequestID(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		attrs := []slog.Attr{
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("request_id", requestID),
		}
		r.logger.LogAttrs(ctx, slog.LevelDebug, "HTTP request started",
			append(attrs, slog.String("remote_addr", req.RemoteAddr))...)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			r.logger.LogAttrs(ctx, slog.LevelError, "HTTP request panicked",
				append(attrs,
					slog.Duration("duration", GetDuration(ctx)),
					slog.Any("panic", recovered),
					slog.String("stack_trace", string(debug.Stack())),
				)...)
			if !rw.headerWritten {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(rw, req.WithContext(ctx))

		attrs = append(attrs,
			slog.Int("status_code", rw.statusCode),
			slog.Duration("duration", GetDuration(ctx)),
		)
		if rw.statusCode >= http.StatusBadRequest {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "HTTP request completed with error", attrs...)
			return
		}
		r.logger.LogAttrs(ctx, slog.LevelInfo, "HTTP request completed", attrs...)
	})
}

// responseWriter records the status code written by the wrapped handler
type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.headerWritten = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.headerWritten = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush lets event streams pass through the wrapper
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// OperationTimer measures one unit of work and logs its duration when ended
type OperationTimer struct {
	ctx       context.Context
	logger    *slog.Logger
	operation string
	start     time.Time
}

// StartTimer starts timing operation. ctx gains a request ID if it has none.
func StartTimer(ctx context.Context, logger *slog.Logger, operation string) *OperationTimer {
	if GetRequestID(ctx) == "" {
		ctx = NewRequestContext(ctx, operation)
	}
	logger.DebugContext(ctx, "Operation started",
		slog.String("operation", operation),
		slog.String("request_id", GetRequestID(ctx)),
	)
	return &OperationTimer{ctx: ctx, logger: logger, operation: operation, start: time.Now()}
}

func (t *OperationTimer) End() time.Duration {
	return t.EndWithError(nil)
}

func (t *OperationTimer) EndWithError(err error) time.Duration {
	d := time.Since(t.start)
	LogLatency(t.ctx, t.logger, t.operation, d, err)
	return d
}

// LogLatency logs a finished operation: debug on success, warn on failure
func LogLatency(ctx context.Context, logger *slog.Logger, operation string, duration time.Duration, err error) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("request_id", GetRequestID(ctx)),
		slog.Duration("duration", duration),
	}
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "Operation completed with error",
			append(attrs, slog.String("error", err.Error()))...)
		return
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "Operation completed", attrs...)
}
