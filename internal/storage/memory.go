package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/JamesPrial/pokeflow/pkg/logging"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

// MemoryBackend keeps details in a map for the life of the process
type MemoryBackend struct {
	mu      sync.RWMutex
	details map[string]pokemon.Detail
	logger  *slog.Logger
}

// NewMemoryBackend creates a new memory-based detail cache
func NewMemoryBackend() *MemoryBackend {
	logger := logging.GetGlobalLogger("storage.memory")
	logger.Info("Creating memory backend")

	return &MemoryBackend{
		details: make(map[string]pokemon.Detail),
		logger:  logger,
	}
}

// PutDetails stores details, replacing any cached entry with the same name
func (m *MemoryBackend) PutDetails(ctx context.Context, details []pokemon.Detail) error {
	return m.put(ctx, entriesFor(details))
}

// PutDetail stores detail under key
func (m *MemoryBackend) PutDetail(ctx context.Context, key string, detail pokemon.Detail) error {
	return m.put(ctx, []entry{{key: Key(key), detail: detail}})
}

func (m *MemoryBackend) put(ctx context.Context, entries []entry) error {
	if len(entries) == 0 {
		m.logger.DebugContext(ctx, "No details to store")
		return nil
	}

	select {
	case <-ctx.Done():
		m.logger.WarnContext(ctx, "Put details operation canceled")
		return ctx.Err()
	default:
	}

	// Validate everything before mutating
	if err := validateEntries(entries); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		m.details[e.key] = cloneDetail(e.detail)
	}

	m.logger.DebugContext(ctx, "Stored details in memory",
		slog.Int("count", len(entries)),
		slog.Int("total_details", len(m.details)),
	)
	return nil
}

// GetDetail looks up a cached detail by name, case-insensitively
func (m *MemoryBackend) GetDetail(ctx context.Context, name string) (*pokemon.Detail, error) {
	select {
	case <-ctx.Done():
		m.logger.WarnContext(ctx, "Get detail operation canceled")
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	d, exists := m.details[Key(name)]
	if !exists {
		m.logger.DebugContext(ctx, "Detail not cached", slog.String("name", name))
		return nil, nil // Not found returns nil, matching the SQLite backend
	}

	out := cloneDetail(d)
	return &out, nil
}

// GetStatistics returns the number of cached details and per-type counts
func (m *MemoryBackend) GetStatistics(ctx context.Context) (map[string]int, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]int{
		"details": len(m.details),
	}
	for _, d := range m.details {
		for _, t := range d.Types {
			if t != "" {
				stats["type_"+t]++
			}
		}
	}
	return stats, nil
}

// Close closes the memory backend (no-op)
func (m *MemoryBackend) Close() error {
	return nil
}

func cloneDetail(d pokemon.Detail) pokemon.Detail {
	if d.Types != nil {
		d.Types = append([]string(nil), d.Types...)
	}
	return d
}
