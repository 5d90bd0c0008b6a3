package storage

import (
	"github.com/JamesPrial/pokeflow/pkg/config"
	"github.com/JamesPrial/pokeflow/pkg/errors"
)

// NewBackend creates a detail cache from the configuration. A nil Backend
// with a nil error means caching is disabled.
func NewBackend(cfg *config.CacheSettings) (Backend, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeConfiguration, "cache configuration cannot be nil")
	}
	switch cfg.Type {
	case "sqlite":
		if cfg.Path == "" {
			return nil, errors.New(errors.ErrCodeConfiguration, "cache path is required for SQLite backend")
		}
		return NewSqliteBackend(cfg.Path, cfg.WALMode)
	case "memory":
		return NewMemoryBackend(), nil
	case "none", "":
		return nil, nil
	default:
		return nil, errors.Newf(errors.ErrCodeConfiguration, "unsupported cache type: %s", cfg.Type)
	}
}
