package main

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/pokeflow/internal/panel"
	"github.com/JamesPrial/pokeflow/internal/pokeapi"
	"github.com/JamesPrial/pokeflow/internal/transport"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	views  []panel.View
}

func (p *recordingPublisher) Publish(event string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	if view, ok := payload.(panel.View); ok {
		p.views = append(p.views, view)
	}
	return nil
}

func TestNewSession_PublishesPanelChanges(t *testing.T) {
	_, upstream := newFakeAPI(t, 3)
	cfg := testSettings(upstream.URL)

	deps, err := newSessionDeps(cfg, upstream.Client())
	require.NoError(t, err)
	publisher := &recordingPublisher{}
	manager := newSession(cfg, deps, publisher)
	defer manager.Close()

	mountSession(context.Background(), manager)
	_, err = manager.HandleCall(context.Background(), "node/click", map[string]interface{}{"id": "2"})
	require.NoError(t, err)
	manager.Panel().Wait()

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Equal(t, []string{transport.EventPanel, transport.EventPanel}, publisher.events)
	require.Len(t, publisher.views, 2)
	assert.Equal(t, panel.StateLoading, publisher.views[0].State)
	assert.Equal(t, panel.StateLoaded, publisher.views[1].State)
}

func TestNewSessionDeps_NoCache(t *testing.T) {
	cfg := testSettings("http://127.0.0.1:1")

	deps, err := newSessionDeps(cfg, nil)
	require.NoError(t, err)
	assert.Same(t, deps.client, deps.fetcher)
	assert.Empty(t, deps.closers)
}

func TestNewSessionDeps_MemoryCache(t *testing.T) {
	api, upstream := newFakeAPI(t, 1)
	cfg := testSettings(upstream.URL)
	cfg.Cache.Type = "memory"

	deps, err := newSessionDeps(cfg, upstream.Client())
	require.NoError(t, err)
	_, cached := deps.fetcher.(*pokeapi.CachedClient)
	require.True(t, cached)
	require.Len(t, deps.closers, 1)

	manager := newSession(cfg, deps, nil)
	defer manager.Close()

	node := pokemon.Node{ID: "2", Kind: pokemon.NodeKindEntity, Data: pokemon.NodeData{Label: "Pikachu"}}
	for i := 0; i < 3; i++ {
		manager.Panel().Select(context.Background(), node)
		manager.Panel().Wait()
	}
	assert.Equal(t, int32(1), api.detailCalls.Load(), "repeat selections are served from the cache")
}

func TestNewSessionDeps_SQLiteCache(t *testing.T) {
	cfg := testSettings("http://127.0.0.1:1")
	cfg.Cache.Type = "sqlite"
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache.db")

	deps, err := newSessionDeps(cfg, nil)
	require.NoError(t, err)
	require.Len(t, deps.closers, 1)
	assert.NoError(t, deps.closers[0]())
}
