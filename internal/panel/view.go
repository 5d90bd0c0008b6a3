package panel

import (
	"strconv"
	"strings"

	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

// State of the detail panel
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
)

const (
	Title         = "Pokémon Details"
	PromptIdle    = "Click on a Pokémon to see details."
	PromptLoading = "Loading data..."
)

// View is the render-ready panel. Name is the selected lookup key;
// Detail is set only when State is loaded.
type View struct {
	State    State       `json:"state"`
	Title    string      `json:"title"`
	Name     string      `json:"name,omitempty"`
	Prompt   string      `json:"prompt,omitempty"`
	Detail   *DetailView `json:"detail,omitempty"`
	Sequence uint64      `json:"sequence"`
}

// DetailView holds the formatted fields of a loaded detail
type DetailView struct {
	ImageURL string `json:"imageUrl,omitempty"`
	Name     string `json:"name"`
	Height   string `json:"height"`
	Weight   string `json:"weight"`
	Types    string `json:"types"`
}

// Render formats d for display
func Render(d pokemon.Detail) DetailView {
	return DetailView{
		ImageURL: d.ImageURL,
		Name:     d.Name,
		Height:   FormatHeight(d.Height),
		Weight:   FormatWeight(d.Weight),
		Types:    strings.Join(d.Types, ", "),
	}
}

// FormatHeight converts decimeters to meters, e.g. 4 -> "0.4 m"
func FormatHeight(decimeters int) string {
	return tenths(decimeters) + " m"
}

// FormatWeight converts hectograms to kilograms, e.g. 60 -> "6 kg"
func FormatWeight(hectograms int) string {
	return tenths(hectograms) + " kg"
}

func tenths(v int) string {
	return strconv.FormatFloat(float64(v)/10, 'f', -1, 64)
}
