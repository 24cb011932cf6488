package mdp

import (
	"github.com/pkg/errors"
)

// Model is the read-only view of a nondeterministic probabilistic model
// needed to color its choices. Choices are numbered contiguously per
// state: the choices of state s are RowGroups()[s] .. RowGroups()[s+1]-1.
type Model interface {
	NumStates() int
	InitialState() int
	RowGroups() []int
	// Destinations lists the successor states of a choice.
	Destinations(choice int) []int
	// Action is the action label of a choice.
	Action(choice int) int
	// Value returns the value of a named state variable in a state.
	Value(state int, variable string) (int64, bool)
}

// Choice is one nondeterministic alternative of a state.
type Choice struct {
	Action       int   `json:"action"`
	Destinations []int `json:"destinations"`
}

// State is a state with its variable valuation and choices.
type State struct {
	Valuation map[string]int64 `json:"valuation"`
	Choices   []Choice         `json:"choices"`
}

// Sparse is an in-memory Model.
type Sparse struct {
	Initial int     `json:"initial"`
	States  []State `json:"states"`

	rowGroups []int
	choices   []Choice
}

var _ Model = &Sparse{}

// Build indexes the states of m. It must be called before m is used as
// a Model.
func (m *Sparse) Build() error {
	if len(m.States) == 0 {
		return errors.New("model has no states")
	}
	if m.Initial < 0 || m.Initial >= len(m.States) {
		return errors.Errorf("initial state %d out of range", m.Initial)
	}
	m.rowGroups = make([]int, 0, len(m.States)+1)
	m.choices = m.choices[:0]
	for s, state := range m.States {
		m.rowGroups = append(m.rowGroups, len(m.choices))
		for c, choice := range state.Choices {
			for _, dst := range choice.Destinations {
				if dst < 0 || dst >= len(m.States) {
					return errors.Errorf("choice %d of state %d leads to unknown state %d", c, s, dst)
				}
			}
			m.choices = append(m.choices, choice)
		}
	}
	m.rowGroups = append(m.rowGroups, len(m.choices))
	return nil
}

func (m *Sparse) NumStates() int {
	return len(m.States)
}

func (m *Sparse) NumChoices() int {
	return len(m.choices)
}

func (m *Sparse) InitialState() int {
	return m.Initial
}

func (m *Sparse) RowGroups() []int {
	return m.rowGroups
}

func (m *Sparse) Destinations(choice int) []int {
	return m.choices[choice].Destinations
}

func (m *Sparse) Action(choice int) int {
	return m.choices[choice].Action
}

func (m *Sparse) Value(state int, variable string) (int64, bool) {
	v, ok := m.States[state].Valuation[variable]
	return v, ok
}
