package tree

// Kind tells what a hole parameterises.
type Kind string

const (
	// KindVariable holes pick the state variable an inner node tests.
	KindVariable Kind = "variable"
	// KindThreshold holes pick the domain index an inner node compares
	// against.
	KindThreshold Kind = "threshold"
	// KindAction holes pick the action of a terminal node.
	KindAction Kind = "action"
)

// Hole is a named integer parameter of the tree with NumOptions options.
type Hole struct {
	Index      int
	Name       string
	Kind       Kind
	NumOptions int
	Node       int
}

// HoleInfo is the caller-facing description of a hole.
type HoleInfo struct {
	NumOptions int    `json:"numOptions"`
	Name       string `json:"name"`
	Kind       Kind   `json:"kind"`
}

func (h Hole) Info() HoleInfo {
	return HoleInfo{NumOptions: h.NumOptions, Name: h.Name, Kind: h.Kind}
}
