package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Factory hands out one logger per component. All loggers share a handler
// and each has its own LevelVar so levels can change at runtime.
type Factory struct {
	config  *Config
	loggers map[string]*slog.Logger
	levels  map[string]*slog.LevelVar
	mu      sync.RWMutex

	handler          slog.Handler
	output           io.Closer
	metricsCollector *MetricsCollector
}

// NewFactory creates a factory writing to the output named in config.
// A nil config means DefaultConfig.
func NewFactory(config *Config) (*Factory, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	w, closer := openOutput(config)
	return newFactory(config, w, closer), nil
}

// NewFactoryWithWriter creates a factory that writes to w instead of the
// configured output
func NewFactoryWithWriter(config *Config, w io.Writer) (*Factory, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	return newFactory(config, w, nil), nil
}

func newFactory(config *Config, w io.Writer, closer io.Closer) *Factory {
	f := &Factory{
		config:  config,
		loggers: make(map[string]*slog.Logger),
		levels:  make(map[string]*slog.LevelVar),
		handler: newHandler(config, w),
		output:  closer,
	}
	if config.Metrics.Enabled {
		f.metricsCollector = NewMetricsCollector(config.Metrics)
	}
	return f
}

// openOutput resolves the configured destination. File output is rotated
// by lumberjack and must be closed.
func openOutput(config *Config) (io.Writer, io.Closer) {
	switch config.Output {
	case LogOutputStdout:
		return os.Stdout, nil
	case LogOutputFile:
		rotator := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   config.Compress,
		}
		return rotator, rotator
	}
	return os.Stderr, nil
}

func newHandler(config *Config, w io.Writer) slog.Handler {
	// Filtering happens per component in LevelHandler
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: config.EnableCaller,
	}
	if config.Format == LogFormatText {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// GetLogger returns the logger for component, creating it on first use
func (f *Factory) GetLogger(component string) *slog.Logger {
	f.mu.RLock()
	logger, ok := f.loggers[component]
	f.mu.RUnlock()
	if ok {
		return logger
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if logger, ok := f.loggers[component]; ok {
		return logger
	}

	level := &slog.LevelVar{}
	level.Set(slogLevel(f.config.GetLevelForComponent(component)))
	logger = slog.New(NewLevelHandler(f.handler, level)).With(slog.String("component", component))

	f.levels[component] = level
	f.loggers[component] = logger
	return logger
}

// GetMetricsCollector returns nil when metrics are disabled
func (f *Factory) GetMetricsCollector() *MetricsCollector {
	return f.metricsCollector
}

// UpdateLevel dynamically updates the log level for a component.
// Loggers already handed out pick up the change immediately.
func (f *Factory) UpdateLevel(component string, level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.config.ComponentLevels == nil {
		f.config.ComponentLevels = make(map[string]LogLevel)
	}

	if component == "default" {
		f.config.Level = level
		for name, lv := range f.levels {
			if _, pinned := f.config.ComponentLevels[name]; !pinned {
				lv.Set(slogLevel(level))
			}
		}
		return
	}

	f.config.ComponentLevels[component] = level
	if lv, ok := f.levels[component]; ok {
		lv.Set(slogLevel(level))
	}
}

// Levels returns the effective level of every component that has a logger,
// plus "default"
func (f *Factory) Levels() map[string]LogLevel {
	f.mu.RLock()
	defer f.mu.RUnlock()

	levels := make(map[string]LogLevel, len(f.levels)+1)
	levels["default"] = f.config.Level
	for name := range f.levels {
		levels[name] = f.config.GetLevelForComponent(name)
	}
	return levels
}

// Close closes all resources
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result *multierror.Error

	if f.metricsCollector != nil {
		if err := f.metricsCollector.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close metrics collector: %w", err))
		}
	}

	if f.output != nil {
		if err := f.output.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close log output: %w", err))
		}
	}

	return result.ErrorOrNil()
}

// slogLevel converts our LogLevel to slog.Level
func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Global factory instance
var (
	globalFactory *Factory
	globalMu      sync.RWMutex
)

// Initialize sets up the global logger factory
func Initialize(config *Config) error {
	factory, err := NewFactory(config)
	if err != nil {
		return err
	}
	return SetGlobalFactory(factory)
}

// SetGlobalFactory replaces the global factory, closing the previous one
func SetGlobalFactory(factory *Factory) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalFactory != nil {
		if err := globalFactory.Close(); err != nil {
			return fmt.Errorf("failed to close existing factory: %w", err)
		}
	}

	globalFactory = factory
	return nil
}

// GetGlobalLogger returns a logger from the global factory
func GetGlobalLogger(component string) *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return slog.Default().With(slog.String("component", component))
	}

	return globalFactory.GetLogger(component)
}

// GetGlobalMetricsCollector returns the global metrics collector, or nil
func GetGlobalMetricsCollector() *MetricsCollector {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return nil
	}

	return globalFactory.GetMetricsCollector()
}

// GetGlobalLevels returns the effective component levels of the global factory
func GetGlobalLevels() map[string]LogLevel {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return map[string]LogLevel{"default": LogLevelInfo}
	}
	return globalFactory.Levels()
}

// Shutdown gracefully shuts down the global logging factory
func Shutdown() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalFactory == nil {
		return nil
	}

	err := globalFactory.Close()
	globalFactory = nil
	return err
}

// UpdateGlobalLevel dynamically updates the log level for a component
func UpdateGlobalLevel(component string, level LogLevel) {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return
	}

	globalFactory.UpdateLevel(component, level)
}
