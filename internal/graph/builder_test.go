package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

func summaries(n int) []pokemon.Summary {
	out := make([]pokemon.Summary, n)
	for i := range out {
		out[i] = pokemon.Summary{Name: fmt.Sprintf("mon%d", i)}
	}
	return out
}

func TestBuild_Counts(t *testing.T) {
	for _, k := range []int{0, 1, 2, 7, 29, 30} {
		t.Run(fmt.Sprintf("%d entries", k), func(t *testing.T) {
			nodes, edges := Build(summaries(k))

			assert.Len(t, nodes, k)
			wantEdges := k - 1
			if wantEdges < 0 {
				wantEdges = 0
			}
			assert.Len(t, edges, wantEdges)
		})
	}
}

func TestBuild_IDsAndEdges(t *testing.T) {
	nodes, edges := Build([]pokemon.Summary{
		{Name: "bulbasaur"},
		{Name: "ivysaur"},
		{Name: "venusaur"},
	})

	require.Len(t, nodes, 3)
	assert.Equal(t, "2", nodes[0].ID)
	assert.Equal(t, "3", nodes[1].ID)
	assert.Equal(t, "4", nodes[2].ID)
	for _, n := range nodes {
		assert.Equal(t, pokemon.NodeTypeDefault, n.Type)
		assert.Equal(t, pokemon.NodeKindEntity, n.Kind)
		assert.False(t, n.IsStart())
	}

	assert.Equal(t, []pokemon.Edge{
		{ID: "e2-3", Source: "2", Target: "3", Type: pokemon.EdgeTypeSmoothStep},
		{ID: "e3-4", Source: "3", Target: "4", Type: pokemon.EdgeTypeSmoothStep},
	}, edges)
}

func TestBuild_Labels(t *testing.T) {
	nodes, _ := Build([]pokemon.Summary{{Name: "mr-mime"}, {Name: "Eevee"}, {Name: ""}})

	assert.Equal(t, "Mr-mime", nodes[0].Data.Label)
	assert.Equal(t, "Eevee", nodes[1].Data.Label)
	assert.Equal(t, "", nodes[2].Data.Label)
}

func TestBuild_NoEdgeTouchesStartOrUnusedID(t *testing.T) {
	nodes, edges := Build(summaries(30))

	ids := map[string]bool{pokemon.StartNodeID: true}
	for _, n := range nodes {
		assert.False(t, ids[n.ID], "duplicate id %s", n.ID)
		ids[n.ID] = true
	}
	assert.False(t, ids["1"], "id 1 is never assigned")

	for _, e := range edges {
		assert.True(t, ids[e.Source], "edge %s has dangling source", e.ID)
		assert.True(t, ids[e.Target], "edge %s has dangling target", e.ID)
		assert.NotEqual(t, pokemon.StartNodeID, e.Source)
		assert.NotEqual(t, pokemon.StartNodeID, e.Target)
		assert.NotEqual(t, nodes[len(nodes)-1].ID, e.Source, "last node has no outgoing edge")
	}
}

func TestGridPosition(t *testing.T) {
	tests := []struct {
		index int
		want  pokemon.Position
	}{
		{0, pokemon.Position{X: 100, Y: 100}},
		{5, pokemon.Position{X: 1100, Y: 100}},
		{6, pokemon.Position{X: 100, Y: 250}},
		{7, pokemon.Position{X: 300, Y: 250}},
		{29, pokemon.Position{X: 1100, Y: 700}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.index), func(t *testing.T) {
			assert.Equal(t, tt.want, GridPosition(tt.index))
		})
	}
}

func TestGridPosition_NoOverlap(t *testing.T) {
	seen := make(map[pokemon.Position]int)
	for i := 0; i < 30; i++ {
		pos := GridPosition(i)
		if prev, ok := seen[pos]; ok {
			t.Fatalf("index %d overlaps index %d at %+v", i, prev, pos)
		}
		seen[pos] = i
	}
}

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"pikachu", "Pikachu"},
		{"Pikachu", "Pikachu"},
		{"nidoran-f", "Nidoran-f"},
		{"éclair", "Éclair"},
		{"", ""},
		{"1up", "1up"},
		{"pIKACHU", "PIKACHU"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Capitalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Capitalize(got), "capitalize is idempotent")
		})
	}
}

func TestStartNode(t *testing.T) {
	start := StartNode()

	assert.Equal(t, "-1", start.ID)
	assert.Equal(t, pokemon.NodeTypeInput, start.Type)
	assert.Equal(t, "Start", start.Data.Label)
	assert.Equal(t, pokemon.Position{X: 250, Y: 0}, start.Position)
	assert.True(t, start.IsStart())
}
