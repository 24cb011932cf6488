package coloring

import (
	"fmt"
	"sort"

	"github.com/go-air/gini/z"
)

// CorePair names the formula of one path specialised to one choice.
type CorePair struct {
	Choice int `json:"choice"`
	Path   int `json:"path"`
}

func (p CorePair) String() string {
	return fmt.Sprintf("p%d_%d", p.Choice, p.Path)
}

type labelKind int

const (
	familyLabel labelKind = iota
	stateLabel
	exclusionLabel
	pathLabel
	harmonizedLabel
	harmonizingLabel
)

// label is the role of an assumption literal.
type label struct {
	kind   labelKind
	hole   int
	option int
	state  int
	choice int
	path   int
}

func (l label) String() string {
	switch l.kind {
	case familyLabel:
		return fmt.Sprintf("h%d!=%d", l.hole, l.option)
	case stateLabel:
		return fmt.Sprintf("z%d", l.state)
	case exclusionLabel:
		return fmt.Sprintf("x%d", l.choice)
	case pathLabel:
		return CorePair{Choice: l.choice, Path: l.path}.String()
	case harmonizedLabel:
		return "harm:" + CorePair{Choice: l.choice, Path: l.path}.String()
	case harmonizingLabel:
		return fmt.Sprintf("harm==%d", l.hole)
	}
	return fmt.Sprintf("label(%d)", int(l.kind))
}

func (l label) pair() CorePair {
	return CorePair{Choice: l.choice, Path: l.path}
}

// pathLabels keeps the (choice, path) literals of ms ordered by choice
// and path. Family, state and exclusion literals are dropped.
func (e *Engine) pathLabels(ms []z.Lit) []z.Lit {
	result := make([]z.Lit, 0, len(ms))
	for _, m := range ms {
		if l, ok := e.labels[m]; ok && l.kind == pathLabel {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := e.labels[result[i]], e.labels[result[j]]
		if a.choice != b.choice {
			return a.choice < b.choice
		}
		return a.path < b.path
	})
	return result
}

func (e *Engine) corePairs(ms []z.Lit) []CorePair {
	pairs := make([]CorePair, len(ms))
	for i, m := range ms {
		pairs[i] = e.labels[m].pair()
	}
	return pairs
}
