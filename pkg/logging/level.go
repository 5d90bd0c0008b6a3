package logging

import (
	"context"
	"log/slog"
)

// LevelHandler filters records below a per-component minimum level.
// The level is read through a slog.Leveler on every call, so a *slog.LevelVar
// can be changed at runtime without rebuilding loggers.
type LevelHandler struct {
	handler slog.Handler
	level   slog.Leveler
}

// NewLevelHandler wraps handler with a minimum level
func NewLevelHandler(handler slog.Handler, level slog.Leveler) *LevelHandler {
	// Avoid stacking filters when wrapping an already filtered handler
	if lh, ok := handler.(*LevelHandler); ok {
		handler = lh.handler
	}
	return &LevelHandler{
		handler: handler,
		level:   level,
	}
}

// Enabled implements slog.Handler
func (lh *LevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < lh.level.Level() {
		return false
	}
	return lh.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (lh *LevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < lh.level.Level() {
		return nil
	}
	return lh.handler.Handle(ctx, record)
}

// WithAttrs implements slog.Handler
func (lh *LevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelHandler{
		handler: lh.handler.WithAttrs(attrs),
		level:   lh.level,
	}
}

// WithGroup implements slog.Handler
func (lh *LevelHandler) WithGroup(name string) slog.Handler {
	return &LevelHandler{
		handler: lh.handler.WithGroup(name),
		level:   lh.level,
	}
}

// Level returns the current minimum level
func (lh *LevelHandler) Level() slog.Level {
	return lh.level.Level()
}

// Handler returns the wrapped handler
func (lh *LevelHandler) Handler() slog.Handler {
	return lh.handler
}
