package errors

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/JamesPrial/pokeflow/pkg/logging"
)

// Logger records failures with their code, cause and request metadata and
// counts them in the component error metric
type Logger struct {
	logger    *slog.Logger
	component string
}

// NewLogger creates an error logger for component using the global factory
func NewLogger(component string) *Logger {
	return &Logger{
		logger:    logging.GetGlobalLogger(component),
		component: component,
	}
}

// NewLoggerWithSlog wraps logger directly. A nil logger means slog.Default().
func NewLoggerWithSlog(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger, component: "unknown"}
}

// LogError logs err and returns it. AppErrors are returned unchanged; any
// other error comes back wrapped as internal.
func (l *Logger) LogError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	attrs := append(requestAttrs(ctx),
		slog.String("operation", operation),
		slog.String("error_type", fmt.Sprintf("%T", err)),
	)

	appErr, ok := As(err)
	if !ok {
		logging.GetGlobalMetricsCollector().RecordComponentError(l.component, operation, string(ErrCodeInternal))
		l.logger.LogAttrs(ctx, slog.LevelError, "Unexpected error occurred", append(attrs,
			slog.String("error", err.Error()),
			slog.String("error_code", string(ErrCodeInternal)),
			slog.Any("stack_trace", captureStack(3)),
		)...)
		return Internal(err)
	}

	logging.GetGlobalMetricsCollector().RecordComponentError(l.component, operation, string(appErr.Code))
	attrs = append(attrs,
		slog.String("error_code", string(appErr.Code)),
		slog.String("error_message", appErr.Message),
		slog.Bool("upstream", IsUpstream(appErr)),
	)
	if appErr.Internal != nil {
		attrs = append(attrs, slog.String("internal_error", appErr.Internal.Error()))
	}
	if appErr.Details != nil {
		attrs = append(attrs, slog.Any("error_details", appErr.Details))
	}
	l.logger.LogAttrs(ctx, getLogLevel(appErr.Code), "Application error occurred", attrs...)
	return err
}

// LogPanic logs a recovered panic value and returns an error safe to show
func (l *Logger) LogPanic(ctx context.Context, recovered interface{}, operation string) error {
	logging.GetGlobalMetricsCollector().RecordComponentError(l.component, operation, string(ErrCodePanic))
	l.logger.LogAttrs(ctx, slog.LevelError, "Panic recovered", append(requestAttrs(ctx),
		slog.String("operation", operation),
		slog.String("error_code", string(ErrCodePanic)),
		slog.Any("panic_value", recovered),
		slog.Any("stack_trace", captureStack(3)),
	)...)
	return New(ErrCodePanic, "An unexpected error occurred")
}

func requestAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if id := logging.GetRequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id := logging.GetSessionID(ctx); id != "" {
		attrs = append(attrs, slog.String("session_id", id))
	}
	return attrs
}

// captureStack captures the current stack trace
func captureStack(skip int) []string {
	const maxStackSize = 10
	stack := make([]string, 0, maxStackSize)

	for i := skip; i < skip+maxStackSize; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if idx := strings.LastIndex(file, "/pokeflow/"); idx >= 0 {
			file = file[idx+len("/pokeflow/"):]
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
	}

	return stack
}

// getLogLevel determines the appropriate log level for an error code
func getLogLevel(code ErrorCode) slog.Level {
	switch {
	case strings.HasPrefix(string(code), "VALIDATION_"):
		return slog.LevelWarn
	case code == ErrCodeEntityNotFound || code == ErrCodeStorageNotFound:
		return slog.LevelInfo
	case code == ErrCodeContextCanceled:
		return slog.LevelDebug
	case strings.HasPrefix(string(code), "UPSTREAM_"),
		strings.HasPrefix(string(code), "STORAGE_"),
		strings.HasPrefix(string(code), "INTERNAL"),
		code == ErrCodePanic:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
