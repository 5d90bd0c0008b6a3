package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JamesPrial/pokeflow/internal/browser"
	"github.com/JamesPrial/pokeflow/internal/listing"
	"github.com/JamesPrial/pokeflow/internal/panel"
	"github.com/JamesPrial/pokeflow/internal/pokeapi"
	"github.com/JamesPrial/pokeflow/internal/storage"
	"github.com/JamesPrial/pokeflow/internal/transport"
	"github.com/JamesPrial/pokeflow/pkg/config"
	"github.com/JamesPrial/pokeflow/pkg/logging"
)

// sessionDeps are the pieces a browsing session is assembled from
type sessionDeps struct {
	client  *pokeapi.Client
	fetcher pokeapi.DetailFetcher
	cache   *pokeapi.CachedClient
	closers []func() error
}

// newSessionDeps creates the remote client and wraps detail fetching in
// the configured cache
func newSessionDeps(cfg *config.Settings, httpClient *http.Client) (*sessionDeps, error) {
	var opts []pokeapi.Option
	if httpClient != nil {
		opts = append(opts, pokeapi.WithHTTPClient(httpClient))
	}
	client := pokeapi.NewClient(cfg.API, opts...)
	deps := &sessionDeps{client: client, fetcher: client}

	backend, err := storage.NewBackend(&cfg.Cache)
	if err != nil {
		return nil, err
	}
	if backend != nil {
		cached := pokeapi.NewCachedClient(client, backend, cfg.Cache.Type)
		deps.fetcher = cached
		deps.cache = cached
		deps.closers = append(deps.closers, cached.Close)
	}
	return deps, nil
}

// newSession wires a browsing session. Panel changes are pushed through
// publisher when it is not nil.
func newSession(cfg *config.Settings, deps *sessionDeps, publisher transport.Publisher) *browser.Manager {
	var opts []panel.Option
	if publisher != nil {
		logger := logging.GetGlobalLogger("server")
		opts = append(opts, panel.WithOnChange(func(view panel.View) {
			if err := publisher.Publish(transport.EventPanel, view); err != nil {
				logger.Warn("Failed to publish panel change", slog.String("error", err.Error()))
			}
		}))
	}

	managerOpts := make([]browser.Option, 0, len(deps.closers))
	for _, closer := range deps.closers {
		managerOpts = append(managerOpts, browser.WithCloser(closer))
	}

	return browser.NewManager(
		listing.NewLoader(deps.client, cfg.API),
		panel.NewController(deps.fetcher, opts...),
		managerOpts...,
	)
}

// mountSession builds the graph before the first request is served
func mountSession(ctx context.Context, manager *browser.Manager) {
	ctx = logging.NewRequestContext(ctx, "mount")
	manager.Mount(ctx)
}
