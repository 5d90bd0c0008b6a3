package logging

import (
	"fmt"
	"strings"
)

// LogFormat selects the slog handler
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LogOutput is where log records are written
type LogOutput string

const (
	LogOutputStdout LogOutput = "stdout"
	LogOutputStderr LogOutput = "stderr"
	LogOutputFile   LogOutput = "file"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config is the logging section of the service settings
type Config struct {
	Level  LogLevel  `yaml:"level" json:"level" env:"POKEFLOW_LOG_LEVEL"`
	Format LogFormat `yaml:"format" json:"format" env:"POKEFLOW_LOG_FORMAT"`
	Output LogOutput `yaml:"output" json:"output" env:"POKEFLOW_LOG_OUTPUT"`

	// File output, rotated by size
	FilePath   string `yaml:"filePath,omitempty" json:"filePath,omitempty" env:"POKEFLOW_LOG_FILE"`
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty" json:"maxSizeMB,omitempty"`
	MaxBackups int    `yaml:"maxBackups,omitempty" json:"maxBackups,omitempty"`
	MaxAgeDays int    `yaml:"maxAgeDays,omitempty" json:"maxAgeDays,omitempty"`
	Compress   bool   `yaml:"compress,omitempty" json:"compress,omitempty"`

	// Overrides keyed by component name, e.g. "panel" or "pokeapi"
	ComponentLevels map[string]LogLevel `yaml:"componentLevels,omitempty" json:"componentLevels,omitempty"`

	EnableCaller bool `yaml:"enableCaller" json:"enableCaller"`

	// Metrics collection
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

// DefaultConfig returns a default logging configuration.
// Logs go to stderr so the stdio transport keeps stdout for protocol frames.
func DefaultConfig() *Config {
	return &Config{
		Level:  LogLevelInfo,
		Format: LogFormatJSON,
		Output: LogOutputStderr,

		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 28,

		Metrics: DefaultMetricsConfig(),
	}
}

// UseDevelopment switches c to verbose, human-readable output with caller
// locations. Destination and rotation settings are kept.
func (c *Config) UseDevelopment() {
	c.Level = LogLevelDebug
	c.Format = LogFormatText
	c.EnableCaller = true
}

var (
	validFormats = map[LogFormat]bool{LogFormatJSON: true, LogFormatText: true}
	validOutputs = map[LogOutput]bool{LogOutputStdout: true, LogOutputStderr: true, LogOutputFile: true}
)

func (c *Config) Validate() error {
	switch {
	case !IsValidLevel(c.Level):
		return fmt.Errorf("invalid log level: %s", c.Level)
	case !validFormats[c.Format]:
		return fmt.Errorf("invalid log format: %s", c.Format)
	case !validOutputs[c.Output]:
		return fmt.Errorf("invalid log output: %s", c.Output)
	case c.Output == LogOutputFile && strings.TrimSpace(c.FilePath) == "":
		return fmt.Errorf("filePath required when output is 'file'")
	case c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0:
		return fmt.Errorf("log rotation settings must be non-negative")
	}

	for component, level := range c.ComponentLevels {
		if !IsValidLevel(level) {
			return fmt.Errorf("invalid log level for component %s: %s", component, level)
		}
	}
	return nil
}

// IsValidLevel reports whether level is one of debug, info, warn, error
func IsValidLevel(level LogLevel) bool {
	switch level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// GetLevelForComponent returns the override for component, or the base level
func (c *Config) GetLevelForComponent(component string) LogLevel {
	if level, ok := c.ComponentLevels[component]; ok {
		return level
	}
	return c.Level
}
