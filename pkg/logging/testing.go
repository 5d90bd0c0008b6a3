package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogger captures JSON log output for verification in tests.
// It is safe for concurrent use by the code under test.
type TestLogger struct {
	mu      sync.Mutex
	buffer  bytes.Buffer
	entries []TestLogEntry
}

// TestLogEntry represents a captured log entry
type TestLogEntry struct {
	Level     string
	Message   string
	Component string
	RequestID string
	Operation string
	Error     string
	Attrs     map[string]interface{}
}

// NewTestLogger creates a new test logger that captures log output
func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

// Write implements io.Writer
func (tl *TestLogger) Write(p []byte) (int, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buffer.Write(p)
}

// GetHandler returns a slog.Handler that writes to this test logger
func (tl *TestLogger) GetHandler() slog.Handler {
	return slog.NewJSONHandler(tl, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// GetLogger returns a slog.Logger that writes to this test logger
func (tl *TestLogger) GetLogger() *slog.Logger {
	return slog.New(tl.GetHandler())
}

// GetEntries returns all captured log entries
func (tl *TestLogger) GetEntries() []TestLogEntry {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.parseBuffer()

	entries := make([]TestLogEntry, len(tl.entries))
	copy(entries, tl.entries)
	return entries
}

// GetEntriesWithLevel returns log entries matching the specified level
func (tl *TestLogger) GetEntriesWithLevel(level string) []TestLogEntry {
	var filtered []TestLogEntry
	for _, entry := range tl.GetEntries() {
		if strings.EqualFold(entry.Level, level) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// GetEntriesWithMessage returns log entries containing the specified message
func (tl *TestLogger) GetEntriesWithMessage(message string) []TestLogEntry {
	var filtered []TestLogEntry
	for _, entry := range tl.GetEntries() {
		if strings.Contains(entry.Message, message) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// Clear drops everything captured so far
func (tl *TestLogger) Clear() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.buffer.Reset()
	tl.entries = nil
}

// parseBuffer moves complete JSON lines from the buffer into entries.
// Caller must hold tl.mu.
func (tl *TestLogger) parseBuffer() {
	if tl.buffer.Len() == 0 {
		return
	}

	lines := strings.Split(strings.TrimSpace(tl.buffer.String()), "\n")
	tl.buffer.Reset()

	for _, line := range lines {
		if line == "" {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}

		entry := TestLogEntry{Attrs: make(map[string]interface{})}
		for key, value := range raw {
			str, _ := value.(string)
			switch key {
			case "time":
			case "level":
				entry.Level = str
			case "msg":
				entry.Message = str
			case "component":
				entry.Component = str
			case "request_id":
				entry.RequestID = str
			case "operation":
				entry.Operation = str
			case "error":
				entry.Error = str
			default:
				entry.Attrs[key] = value
			}
		}
		tl.entries = append(tl.entries, entry)
	}
}

// AssertLogged fails the test unless a message containing msg was logged
func (tl *TestLogger) AssertLogged(t testing.TB, level, msg string) {
	t.Helper()
	for _, entry := range tl.GetEntriesWithMessage(msg) {
		if strings.EqualFold(entry.Level, level) {
			return
		}
	}
	t.Errorf("expected %s log containing %q, got %+v", level, msg, tl.GetEntries())
}

// AssertNotLogged fails the test if a message containing msg was logged
func (tl *TestLogger) AssertNotLogged(t testing.TB, msg string) {
	t.Helper()
	if entries := tl.GetEntriesWithMessage(msg); len(entries) > 0 {
		t.Errorf("expected no log containing %q, got %+v", msg, entries)
	}
}
