package storage

import (
	"context"
	"strings"

	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

// Backend caches fetched Pokémon details keyed by lower-cased name.
// GetDetail returns nil, nil on a miss.
type Backend interface {
	PutDetails(ctx context.Context, details []pokemon.Detail) error
	// PutDetail stores detail under key, leaving detail.Name untouched
	PutDetail(ctx context.Context, key string, detail pokemon.Detail) error
	GetDetail(ctx context.Context, name string) (*pokemon.Detail, error)
	GetStatistics(ctx context.Context) (map[string]int, error)
	Close() error
}

// entry is one detail and the key it is cached under
type entry struct {
	key    string
	detail pokemon.Detail
}

func entriesFor(details []pokemon.Detail) []entry {
	entries := make([]entry, len(details))
	for i, d := range details {
		entries[i] = entry{key: Key(d.Name), detail: d}
	}
	return entries
}

func validateEntries(entries []entry) error {
	for _, e := range entries {
		if e.key == "" {
			return errors.New(errors.ErrCodeValidationRequired, "Detail name cannot be empty or whitespace-only")
		}
	}
	return nil
}

// Key normalizes a Pokémon name into a cache key
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
