// Package browser ties the listing, graph and detail panel together into one
// browsing session and exposes it as a set of RPC methods.
package browser

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"

	"github.com/JamesPrial/pokeflow/internal/graph"
	"github.com/JamesPrial/pokeflow/internal/listing"
	"github.com/JamesPrial/pokeflow/internal/panel"
	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/logging"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

// Method names served by HandleCall
const (
	MethodList        = "methods/list"
	MethodGraphGet    = "graph/get"
	MethodNodesChange = "graph/nodes_change"
	MethodNodeClick   = "node/click"
	MethodPanelGet    = "panel/get"
)

// Method describes one callable method
type Method struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GraphView is the payload handed to the diagram widget
type GraphView struct {
	Nodes []pokemon.Node `json:"nodes"`
	Edges []pokemon.Edge `json:"edges"`
}

// ChangeResult reports how a node-change batch was applied
type ChangeResult struct {
	Applied int `json:"applied"`
	Ignored int `json:"ignored"`
}

type nodesChangeParams struct {
	Changes []graph.NodeChange `mapstructure:"changes"`
}

type nodeClickParams struct {
	ID string `mapstructure:"id"`
}

// Manager owns one browsing session
type Manager struct {
	loader  *listing.Loader
	store   *graph.Store
	panel   *panel.Controller
	closers []func() error

	mountOnce sync.Once
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	logger    *slog.Logger
}

// Option customizes a Manager
type Option func(*Manager)

// WithCloser registers fn to run on Close, after the panel has stopped
func WithCloser(fn func() error) Option {
	return func(m *Manager) {
		m.closers = append(m.closers, fn)
	}
}

// NewManager creates a session. The graph holds only the start node until Mount.
func NewManager(loader *listing.Loader, controller *panel.Controller, opts ...Option) *Manager {
	m := &Manager{
		loader: loader,
		store:  graph.NewStore(),
		panel:  controller,
		logger: logging.GetGlobalLogger("browser"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mount loads the listing and merges the built graph. Only the first call
// has any effect.
func (m *Manager) Mount(ctx context.Context) {
	m.mountOnce.Do(func() {
		summaries := m.loader.Load(ctx)
		nodes, edges := graph.Build(summaries)
		m.store.Merge(ctx, nodes, edges)
	})
}

// Store exposes the session's graph
func (m *Manager) Store() *graph.Store {
	return m.store
}

// Panel exposes the session's detail panel
func (m *Manager) Panel() *panel.Controller {
	return m.panel
}

// HandleListMethods returns the methods served by HandleCall
func (m *Manager) HandleListMethods() []Method {
	return []Method{
		{
			Name:        MethodGraphGet,
			Description: "Get the current nodes and edges",
		},
		{
			Name:        MethodNodesChange,
			Description: "Apply node position changes from the diagram",
		},
		{
			Name:        MethodNodeClick,
			Description: "Select a node and load its details",
		},
		{
			Name:        MethodPanelGet,
			Description: "Get the detail panel",
		},
	}
}

// HandleCall dispatches one widget method
func (m *Manager) HandleCall(ctx context.Context, method string, params map[string]interface{}) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, errors.FromContext(ctx.Err())
	default:
	}
	if m.closed.Load() {
		return nil, errors.New(errors.ErrCodeInvalidOperation, "session is closed")
	}

	switch method {
	case MethodList:
		return map[string]interface{}{"methods": m.HandleListMethods()}, nil
	case MethodGraphGet:
		return m.handleGraphGet(), nil
	case MethodNodesChange:
		return m.handleNodesChange(ctx, params)
	case MethodNodeClick:
		return m.handleNodeClick(ctx, params)
	case MethodPanelGet:
		return m.panel.View(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeTransportMethodNotFound, "unknown method: %s", method)
	}
}

func (m *Manager) handleGraphGet() GraphView {
	nodes, edges := m.store.Snapshot()
	return GraphView{Nodes: nodes, Edges: edges}
}

func (m *Manager) handleNodesChange(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	raw, ok := params["changes"]
	if !ok {
		return nil, errors.ValidationRequired("changes")
	}
	if _, ok := raw.([]interface{}); !ok {
		return nil, errors.New(errors.ErrCodeValidationType, "changes must be an array")
	}

	var p nodesChangeParams
	if err := mapstructure.Decode(params, &p); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidationInvalid, "failed to decode node changes")
	}

	applied, ignored, err := m.store.ApplyNodeChanges(ctx, p.Changes)
	if err != nil {
		return nil, err
	}
	return ChangeResult{Applied: applied, Ignored: ignored}, nil
}

func (m *Manager) handleNodeClick(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	var p nodeClickParams
	if err := mapstructure.Decode(params, &p); err != nil {
		return nil, errors.New(errors.ErrCodeValidationType, "id must be a string")
	}
	if p.ID == "" {
		return nil, errors.ValidationRequired("id")
	}

	node, ok := m.store.Node(p.ID)
	if !ok {
		return nil, errors.NotFound("node " + p.ID)
	}
	return m.panel.Select(ctx, node), nil
}

// Close stops the panel and runs the registered closers. Later calls return
// the first result.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.closeErr = m.close()
	})
	return m.closeErr
}

func (m *Manager) close() error {
	var result *multierror.Error
	if err := m.panel.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	for _, fn := range m.closers {
		if err := fn(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		m.logger.Error("Failed to close session", slog.String("error", err.Error()))
		return err
	}
	return nil
}
