// Package listing loads the bounded set of Pokémon the graph is built from.
package listing

import (
	"context"
	"log/slog"

	"github.com/JamesPrial/pokeflow/internal/pokeapi"
	"github.com/JamesPrial/pokeflow/pkg/config"
	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/logging"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

// Loader requests one page of summaries and caps it for display
type Loader struct {
	lister     pokeapi.Lister
	limit      int
	displayCap int
	logger     *slog.Logger
	errLogger  *errors.Logger
}

// NewLoader creates a loader using the configured limit and display cap
func NewLoader(lister pokeapi.Lister, cfg config.APISettings) *Loader {
	return &Loader{
		lister:     lister,
		limit:      cfg.ListLimit,
		displayCap: cfg.DisplayCap,
		logger:     logging.GetGlobalLogger("listing"),
		errLogger:  errors.NewLogger("listing"),
	}
}

// Load issues a single listing request and returns at most displayCap
// summaries in API order. Failures are logged and yield an empty list.
func (l *Loader) Load(ctx context.Context) []pokemon.Summary {
	timer := logging.StartTimer(ctx, l.logger, "load_listing")

	summaries, err := l.lister.ListSummaries(ctx, l.limit)
	if err != nil {
		timer.EndWithError(err)
		_ = l.errLogger.LogError(ctx, err, "load_listing")
		return []pokemon.Summary{}
	}
	timer.End()

	received := len(summaries)
	if received > l.displayCap {
		summaries = summaries[:l.displayCap]
	}

	l.logger.InfoContext(ctx, "Loaded listing",
		slog.Int("received", received),
		slog.Int("kept", len(summaries)),
	)
	return summaries
}
