// Package panel holds the detail panel state machine. Each selection
// supersedes the previous one: its request is canceled and any response that
// still arrives is discarded.
package panel

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/JamesPrial/pokeflow/internal/pokeapi"
	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/logging"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

// Selection is the outcome of a node click
type Selection struct {
	Ignored  bool   `json:"ignored"`
	Selected string `json:"selected,omitempty"`
	Sequence uint64 `json:"sequence,omitempty"`
}

// Option customizes a Controller
type Option func(*Controller)

// WithOnChange registers a callback invoked with every new view, in order
func WithOnChange(fn func(View)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// Controller owns the panel state. It is safe for concurrent use.
type Controller struct {
	fetcher pokeapi.DetailFetcher

	mu       sync.Mutex
	state    State
	selected string
	detail   *pokemon.Detail
	seq      uint64
	cancel   context.CancelFunc
	closed   bool

	// notifyMu is taken before mu is released so callbacks observe views in
	// the order the state changed
	notifyMu sync.Mutex
	onChange func(View)

	wg        sync.WaitGroup
	logger    *slog.Logger
	errLogger *errors.Logger
}

// NewController creates an idle panel backed by fetcher
func NewController(fetcher pokeapi.DetailFetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		state:     StateIdle,
		logger:    logging.GetGlobalLogger("panel"),
		errLogger: errors.NewLogger("panel"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Select reacts to a click on node. Start-node clicks are ignored and leave
// the panel untouched. Otherwise the panel enters Loading for the node's
// lower-cased label and a detail request starts in the background.
func (c *Controller) Select(ctx context.Context, node pokemon.Node) Selection {
	metrics := logging.GetGlobalMetricsCollector()

	if node.IsStart() {
		metrics.RecordNodeClick(string(pokemon.NodeKindStart))
		c.logger.DebugContext(ctx, "Ignoring click on start node")
		return Selection{Ignored: true}
	}
	metrics.RecordNodeClick(string(pokemon.NodeKindEntity))

	key := strings.ToLower(node.Data.Label)
	if strings.TrimSpace(key) == "" {
		c.logger.WarnContext(ctx, "Ignoring click on node without label", slog.String("node_id", node.ID))
		return Selection{Ignored: true}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Selection{Ignored: true}
	}

	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	c.state = StateLoading
	c.selected = key
	c.detail = nil

	// The fetch outlives the click request but keeps its values for logging
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.wg.Add(1)
	view := c.viewLocked()
	c.notifyLocked(view)

	c.logger.InfoContext(ctx, "Selected node",
		slog.String("node_id", node.ID),
		slog.String("name", key),
		slog.Uint64("sequence", seq),
	)

	go c.fetch(fetchCtx, cancel, seq, key)

	return Selection{Selected: key, Sequence: seq}
}

func (c *Controller) fetch(ctx context.Context, cancel context.CancelFunc, seq uint64, key string) {
	defer c.wg.Done()
	defer cancel()

	timer := logging.GetGlobalMetricsCollector().NewRequestTimer("panel", "fetch_detail")
	detail, err := c.fetcher.FetchDetail(ctx, key)
	timer.Finish(string(errors.GetCode(err)))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if seq != c.seq {
		c.mu.Unlock()
		logging.GetGlobalMetricsCollector().RecordStaleResponse()
		c.logger.DebugContext(ctx, "Discarding superseded detail response",
			slog.String("name", key),
			slog.Uint64("sequence", seq),
		)
		return
	}
	if err != nil {
		c.mu.Unlock()
		// Panel stays in Loading
		_ = c.errLogger.LogError(ctx, err, "fetch_detail")
		return
	}

	c.state = StateLoaded
	c.detail = detail
	c.notifyLocked(c.viewLocked())
}

// notifyLocked releases c.mu and delivers view to the callback.
// Caller must hold c.mu.
func (c *Controller) notifyLocked(view View) {
	if c.onChange == nil {
		c.mu.Unlock()
		return
	}
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	c.onChange(view)
}

// View returns the current panel
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		State:    c.state,
		Title:    Title,
		Sequence: c.seq,
	}
	switch c.state {
	case StateIdle:
		v.Prompt = PromptIdle
	case StateLoading:
		v.Name = c.selected
		v.Prompt = PromptLoading
	case StateLoaded:
		v.Name = c.selected
		if c.detail != nil {
			d := Render(*c.detail)
			v.Detail = &d
		}
	}
	return v
}

// Wait blocks until no detail request is in flight
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels any in-flight request, waits for it and discards the detail
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateIdle
	c.selected = ""
	c.detail = nil
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}
