package graph

import (
	"context"
	"log/slog"
	"sync"

	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/logging"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

// NodeChangePosition is the only change type the store applies
const NodeChangePosition = "position"

// NodeChange is one entry of the widget's node-change event. Position is nil
// when a drag ends without a new location.
type NodeChange struct {
	ID       string            `json:"id" mapstructure:"id"`
	Type     string            `json:"type" mapstructure:"type"`
	Position *pokemon.Position `json:"position,omitempty" mapstructure:"position"`
	Dragging bool              `json:"dragging,omitempty" mapstructure:"dragging"`
}

// Store holds the session's nodes and edges. Besides Merge, only node
// positions ever change.
type Store struct {
	mu     sync.RWMutex
	nodes  []pokemon.Node
	edges  []pokemon.Edge
	logger *slog.Logger
}

// NewStore returns a store holding just the start node
func NewStore() *Store {
	s := &Store{
		nodes:  []pokemon.Node{StartNode()},
		logger: logging.GetGlobalLogger("graph"),
	}
	logging.GetGlobalMetricsCollector().SetGraphSize(len(s.nodes), 0)
	return s
}

// Merge appends nodes to the live collection and replaces the edges.
// It does not deduplicate; callers merge a listing once per session.
func (s *Store) Merge(ctx context.Context, nodes []pokemon.Node, edges []pokemon.Edge) {
	s.mu.Lock()
	s.nodes = append(s.nodes, nodes...)
	s.edges = append([]pokemon.Edge(nil), edges...)
	nodeCount, edgeCount := len(s.nodes), len(s.edges)
	s.mu.Unlock()

	logging.GetGlobalMetricsCollector().SetGraphSize(nodeCount, edgeCount)
	s.logger.InfoContext(ctx, "Merged graph",
		slog.Int("added_nodes", len(nodes)),
		slog.Int("nodes", nodeCount),
		slog.Int("edges", edgeCount),
	)
}

// ApplyNodeChanges applies position changes and ignores every other change
// type. The batch is validated first so an unknown id leaves nothing moved.
func (s *Store) ApplyNodeChanges(ctx context.Context, changes []NodeChange) (applied, ignored int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes {
		if c.Type != NodeChangePosition || c.Position == nil {
			continue
		}
		if s.indexLocked(c.ID) < 0 {
			return 0, 0, errors.NotFound("node " + c.ID)
		}
	}

	for _, c := range changes {
		if c.Type != NodeChangePosition || c.Position == nil {
			ignored++
			continue
		}
		s.updateLocked(c.ID, *c.Position)
		applied++
	}

	s.logger.DebugContext(ctx, "Applied node changes",
		slog.Int("applied", applied),
		slog.Int("ignored", ignored),
	)
	return applied, ignored, nil
}

// Snapshot returns copies of the current nodes and edges
func (s *Store) Snapshot() ([]pokemon.Node, []pokemon.Edge) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := append([]pokemon.Node(nil), s.nodes...)
	edges := append([]pokemon.Edge{}, s.edges...)
	return nodes, edges
}

// Node looks up a node by id
func (s *Store) Node(id string) (pokemon.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.nodes[i], true
	}
	return pokemon.Node{}, false
}

// Len reports the number of nodes and edges
func (s *Store) Len() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// updateLocked moves every node carrying id and reports whether any matched
func (s *Store) updateLocked(id string, pos pokemon.Position) bool {
	found := false
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			s.nodes[i].Position = pos
			found = true
		}
	}
	return found
}
