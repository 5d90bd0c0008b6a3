package pokeapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JamesPrial/pokeflow/internal/storage"
	"github.com/JamesPrial/pokeflow/pkg/logging"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

// CachedClient serves details from a storage backend, falling back to the
// wrapped fetcher on a miss. Cache failures are logged and never fail a fetch.
type CachedClient struct {
	next    DetailFetcher
	backend storage.Backend
	label   string
	logger  *slog.Logger
}

// NewCachedClient decorates next with backend. label names the backend in metrics.
func NewCachedClient(next DetailFetcher, backend storage.Backend, label string) *CachedClient {
	return &CachedClient{
		next:    next,
		backend: backend,
		label:   label,
		logger:  logging.GetGlobalLogger("pokeapi.cache"),
	}
}

// FetchDetail implements DetailFetcher
func (c *CachedClient) FetchDetail(ctx context.Context, name string) (*pokemon.Detail, error) {
	metrics := logging.GetGlobalMetricsCollector()

	cached, err := c.backend.GetDetail(ctx, name)
	if err != nil {
		c.logger.WarnContext(ctx, "Cache lookup failed",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
	if cached != nil {
		metrics.RecordCacheHit(c.label)
		return cached, nil
	}
	metrics.RecordCacheMiss(c.label)

	detail, err := c.next.FetchDetail(ctx, name)
	if err != nil {
		return nil, err
	}

	// Keyed by the requested name; the upstream name is served on later hits
	if err := c.backend.PutDetail(ctx, name, *detail); err != nil {
		c.logger.WarnContext(ctx, "Cache store failed",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
	return detail, nil
}

// Statistics reports the backend label and its entry counts
func (c *CachedClient) Statistics(ctx context.Context) (map[string]interface{}, error) {
	stats, err := c.backend.GetStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s cache statistics: %w", c.label, err)
	}
	out := make(map[string]interface{}, len(stats)+1)
	for k, v := range stats {
		out[k] = v
	}
	out["type"] = c.label
	return out, nil
}

// Close closes the backing store
func (c *CachedClient) Close() error {
	if err := c.backend.Close(); err != nil {
		return fmt.Errorf("failed to close %s cache: %w", c.label, err)
	}
	return nil
}
