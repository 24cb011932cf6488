package coloring

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linusheck/synthesis/pkg/coloring/family"
	"github.com/linusheck/synthesis/pkg/coloring/tree"
	"github.com/linusheck/synthesis/pkg/mdp"
)

// Hole indices of the single-branch tree: the root 0 tests x and has
// terminals 1 (true) and 2 (false).
const (
	holeA1 = iota
	holeA2
	holeV0
	holeT0
)

var binary = []tree.Variable{{Name: "x", Domain: []int64{0, 1}}}

func singleBranch() []tree.NodeSpec {
	const none = 3
	return []tree.NodeSpec{
		{Parent: none, True: 1, False: 2},
		{Parent: 0, True: none, False: none},
		{Parent: 0, True: none, False: none},
	}
}

// depthTwo is root 0 with children 1 (inner) and 2 (terminal); node 1
// has terminals 3 and 4.
func depthTwo() []tree.NodeSpec {
	const none = 5
	return []tree.NodeSpec{
		{Parent: none, True: 1, False: 2},
		{Parent: 0, True: 3, False: 4},
		{Parent: 0, True: none, False: none},
		{Parent: 1, True: none, False: none},
		{Parent: 1, True: none, False: none},
	}
}

func singleTerminal() []tree.NodeSpec {
	return []tree.NodeSpec{{Parent: 1, True: 1, False: 1}}
}

// chain returns states x = 0..n-1 each offering actions 0 and 1, both
// leading to the next state. The last state loops. Choice 2s+a is action
// a of state s.
func chain(n int) *mdp.Sparse {
	m := &mdp.Sparse{}
	for s := 0; s < n; s++ {
		next := s + 1
		if next == n {
			next = s
		}
		m.States = append(m.States, mdp.State{
			Valuation: map[string]int64{"x": int64(s)},
			Choices: []mdp.Choice{
				{Action: 0, Destinations: []int{next}},
				{Action: 1, Destinations: []int{next}},
			},
		})
	}
	if err := m.Build(); err != nil {
		panic(err)
	}
	return m
}

func domain(n int) []tree.Variable {
	v := tree.Variable{Name: "x"}
	for i := 0; i < n; i++ {
		v.Domain = append(v.Domain, int64(i))
	}
	return []tree.Variable{v}
}

func newEngine(t *testing.T, model mdp.Model, variables []tree.Variable, nodes []tree.NodeSpec, options ...Option) *Engine {
	t.Helper()
	e, err := New(model, variables, nodes, options...)
	require.NoError(t, err)
	return e
}

func choiceSet(n int, choices ...int) *bitset.BitSet {
	b := bitset.New(uint(n))
	for _, c := range choices {
		b.Set(uint(c))
	}
	return b
}

// scheduler picks action actions[s] in state s of a chain.
func scheduler(actions ...int) *bitset.BitSet {
	b := bitset.New(uint(2 * len(actions)))
	for s, a := range actions {
		b.Set(uint(2*s + a))
	}
	return b
}

func assertBalanced(t *testing.T, e *Engine) {
	t.Helper()
	assert.Equal(t, 0, e.session.Depth(), "solver scopes left open")
}

// members enumerates every assignment of f.
func members(f *family.Family) [][]int {
	result := [][]int{nil}
	for h := 0; h < f.NumHoles(); h++ {
		var next [][]int
		for _, prefix := range result {
			for _, o := range f.Options(h) {
				next = append(next, append(append([]int(nil), prefix...), o))
			}
		}
		result = next
	}
	return result
}

func first(assignment [][]int) []int {
	result := make([]int, len(assignment))
	for h, options := range assignment {
		result[h] = options[0]
	}
	return result
}

// holds evaluates the formula of a (choice, path) pair under a concrete
// assignment: either the path is not taken or it selects the action of
// the choice.
func holds(e *Engine, assignment []int, pair CorePair) bool {
	state := e.choiceToState[pair.Choice]
	path, action := e.tree.Evaluate(assignment, e.valuation[state])
	return path != pair.Path || action == e.actions[pair.Choice]
}

// realizable reports whether a member of f takes the given choice in each
// of its states. Every state owns at most one of the choices.
func realizable(e *Engine, f *family.Family, choices *bitset.BitSet) bool {
	for _, a := range members(f) {
		ok := true
		for c, found := choices.NextSet(0); found && ok; c, found = choices.NextSet(c + 1) {
			_, action := e.tree.Evaluate(a, e.valuation[e.choiceToState[c]])
			ok = action == e.actions[c]
		}
		if ok {
			return true
		}
	}
	return false
}

func satisfiable(e *Engine, f *family.Family, core []CorePair) bool {
	for _, a := range members(f) {
		ok := true
		for _, pair := range core {
			ok = ok && holds(e, a, pair)
		}
		if ok {
			return true
		}
	}
	return false
}

func TestNewAccessors(t *testing.T) {
	e := newEngine(t, chain(2), binary, singleBranch())
	assert.Equal(t, 2, e.NumStates())
	assert.Equal(t, 4, e.NumChoices())
	assert.Equal(t, 1, e.NumVariables())
	assert.Equal(t, 3, e.NumNodes())
	assert.Equal(t, 2, e.NumPaths())
	assert.Equal(t, 4, e.NumHoles())
	assert.Equal(t, []tree.HoleInfo{
		{NumOptions: 2, Name: "A1", Kind: tree.KindAction},
		{NumOptions: 2, Name: "A2", Kind: tree.KindAction},
		{NumOptions: 1, Name: "V0", Kind: tree.KindVariable},
		{NumOptions: 2, Name: "T0", Kind: tree.KindThreshold},
	}, e.FamilyInfo())
	assert.Equal(t, []int{1}, e.Valuation(1))
	assert.Len(t, members(e.Family()), 8)
	assertBalanced(t, e)
}

func TestNewNumActions(t *testing.T) {
	e := newEngine(t, chain(2), binary, singleBranch(), WithNumActions(5))
	assert.Equal(t, 5, e.FamilyInfo()[holeA1].NumOptions)

	_, err := New(chain(2), binary, singleBranch(), WithNumActions(0))
	assert.Error(t, err)
}

func TestNewErrors(t *testing.T) {
	noChoices := &mdp.Sparse{States: []mdp.State{{Valuation: map[string]int64{"x": 0}}}}
	require.NoError(t, noChoices.Build())

	for _, tt := range []struct {
		Name      string
		Model     mdp.Model
		Variables []tree.Variable
		Nodes     []tree.NodeSpec
		Error     error
	}{
		{
			Name:      "variable not found",
			Model:     chain(2),
			Variables: []tree.Variable{{Name: "y", Domain: []int64{0, 1}}},
			Nodes:     singleBranch(),
			Error:     ErrVariableNotFound,
		},
		{
			Name:      "value not in domain",
			Model:     chain(3),
			Variables: binary,
			Nodes:     singleBranch(),
			Error:     ErrValueNotInDomain,
		},
		{
			Name:      "state without choices",
			Model:     noChoices,
			Variables: binary,
			Nodes:     singleBranch(),
			Error:     ErrInvalidModel,
		},
		{
			Name:      "inner node with one child",
			Model:     chain(2),
			Variables: binary,
			Nodes: []tree.NodeSpec{
				{Parent: 2, True: 1, False: 2},
				{Parent: 0, True: 2, False: 2},
			},
			Error: ErrMalformedTree,
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			_, err := New(tt.Model, tt.Variables, tt.Nodes)
			require.Error(t, err)
			assert.Equal(t, tt.Error, errors.Cause(err))
		})
	}
}

func TestFamilyAssumptionsRejectMismatch(t *testing.T) {
	e := newEngine(t, chain(2), binary, singleBranch())
	for _, tt := range []struct {
		Name   string
		Family *family.Family
	}{
		{
			Name:   "wrong number of holes",
			Family: family.Full([]int{2, 2}),
		},
		{
			Name:   "empty option set",
			Family: family.New([][]int{{0, 1}, {}, {0}, {0, 1}}),
		},
		{
			Name:   "option out of range",
			Family: family.New([][]int{{0, 1}, {0, 1}, {0}, {0, 2}}),
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			_, err := e.SelectCompatibleChoices(tt.Family)
			assert.Equal(t, ErrFamilyMismatch, errors.Cause(err))
			_, err = e.AreChoicesConsistent(choiceSet(4, 0), tt.Family)
			assert.Equal(t, ErrFamilyMismatch, errors.Cause(err))
			assertBalanced(t, e)
		})
	}
}

func TestLabels(t *testing.T) {
	e := newEngine(t, chain(2), binary, singleBranch())
	for c := 0; c < e.NumChoices(); c++ {
		for p := 0; p < e.NumPaths(); p++ {
			l := e.labels[e.plain[c][p]]
			assert.Equal(t, pathLabel, l.kind)
			assert.Equal(t, CorePair{Choice: c, Path: p}, l.pair())
			assert.Equal(t, harmonizedLabel, e.labels[e.harmonized[c][p]].kind)
		}
	}
	assert.Equal(t, "p3_1", e.labels[e.plain[3][1]].String())
	assert.Equal(t, "z1", e.labels[e.stateLit[1]].String())
	assert.Equal(t, "x2", e.labels[e.pick[2].Not()].String())
	assert.Equal(t, "h3!=1", e.labels[e.holes[holeT0].Eq(1).Not()].String())

	mixed := []z.Lit{e.stateLit[0], e.plain[2][1], e.pick[1].Not(), e.plain[0][1], e.plain[0][0]}
	assert.Equal(t, []CorePair{{0, 0}, {0, 1}, {2, 1}}, e.corePairs(e.pathLabels(mixed)))
}
