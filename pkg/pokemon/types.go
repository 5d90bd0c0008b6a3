package pokemon

// NodeKind distinguishes the fixed start node from entity nodes
type NodeKind string

const (
	NodeKindStart  NodeKind = "start"
	NodeKindEntity NodeKind = "entity"
)

// Widget node types understood by the flow-diagram renderer
const (
	NodeTypeInput   = "input"
	NodeTypeDefault = "default"
)

// EdgeTypeSmoothStep is the curved connector used between entity nodes
const EdgeTypeSmoothStep = "smoothstep"

const (
	// StartNodeID is reserved for the start node and never assigned to an entity
	StartNodeID = "-1"
	// StartNodeLabel is the display label of the start node
	StartNodeLabel = "Start"
)

// Summary is one entry of the listing endpoint. Name is the identity key.
type Summary struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Position is a node's location on the canvas
type Position struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

// NodeData carries what the widget renders inside a node
type NodeData struct {
	Label string `json:"label"`
}

type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Kind     NodeKind `json:"kind"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// IsStart reports whether n is the reserved start node
func (n Node) IsStart() bool {
	return n.ID == StartNodeID || n.Kind == NodeKindStart
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Detail is the full record of one Pokémon as shown in the side panel.
// Height is in decimeters and Weight in hectograms, as served upstream.
type Detail struct {
	Name     string   `json:"name"`
	Height   int      `json:"height"`
	Weight   int      `json:"weight"`
	Types    []string `json:"types"`
	ImageURL string   `json:"imageUrl,omitempty"`
}
