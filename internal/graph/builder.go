// Package graph derives the node-graph shown by the flow widget from the
// Pokémon listing and owns the session's live node and edge collections.
package graph

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

// Grid layout
const (
	Columns       = 6
	OriginX       = 100
	OriginY       = 100
	ColumnSpacing = 200
	RowSpacing    = 150
)

// entityIDOffset leaves id "1" unused; entity i gets id i+2
const entityIDOffset = 2

// StartNode returns the fixed entry node that precedes every entity
func StartNode() pokemon.Node {
	return pokemon.Node{
		ID:       pokemon.StartNodeID,
		Type:     pokemon.NodeTypeInput,
		Kind:     pokemon.NodeKindStart,
		Position: pokemon.Position{X: 250, Y: 0},
		Data:     pokemon.NodeData{Label: pokemon.StartNodeLabel},
	}
}

// NodeID returns the id assigned to the entity at listing index i
func NodeID(i int) string {
	return strconv.Itoa(i + entityIDOffset)
}

// EdgeID derives an edge id from its endpoints
func EdgeID(source, target string) string {
	return "e" + source + "-" + target
}

// GridPosition places the entity at listing index i
func GridPosition(i int) pokemon.Position {
	return pokemon.Position{
		X: float64(OriginX + (i%Columns)*ColumnSpacing),
		Y: float64(OriginY + (i/Columns)*RowSpacing),
	}
}

// Capitalize upper-cases the first character and leaves the rest unchanged
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return s
	}
	return string(upper) + s[size:]
}

// Build maps summaries to positioned entity nodes and a chain of edges
// joining them in listing order. The start node is not included; it lives
// in the Store from creation and no edge touches it.
func Build(summaries []pokemon.Summary) ([]pokemon.Node, []pokemon.Edge) {
	nodes := make([]pokemon.Node, 0, len(summaries))
	for i, s := range summaries {
		nodes = append(nodes, pokemon.Node{
			ID:       NodeID(i),
			Type:     pokemon.NodeTypeDefault,
			Kind:     pokemon.NodeKindEntity,
			Position: GridPosition(i),
			Data:     pokemon.NodeData{Label: Capitalize(s.Name)},
		})
	}

	var edges []pokemon.Edge
	if len(nodes) > 1 {
		edges = make([]pokemon.Edge, 0, len(nodes)-1)
	}
	for i := 0; i+1 < len(nodes); i++ {
		edges = append(edges, pokemon.Edge{
			ID:     EdgeID(nodes[i].ID, nodes[i+1].ID),
			Source: nodes[i].ID,
			Target: nodes[i+1].ID,
			Type:   pokemon.EdgeTypeSmoothStep,
		})
	}

	return nodes, edges
}
