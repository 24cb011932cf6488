package coloring

import (
	"time"

	"github.com/go-air/gini/z"
	"github.com/pkg/errors"

	"github.com/linusheck/synthesis/pkg/coloring/family"
	"github.com/linusheck/synthesis/pkg/coloring/smt"
	"github.com/linusheck/synthesis/pkg/coloring/tree"
	"github.com/linusheck/synthesis/pkg/metrics"
)

// encode compiles every (choice, path) formula into the session and seals
// it. A path with steps d_1..d_k ending in action hole A holds for a
// choice with action a in state s when
//
//	!d_1(s) || ... || !d_k(s) || A == a
//
// and is asserted through the clause (!label || !pick_c || formula).
func (e *Engine) encode() {
	numHoles := e.tree.NumHoles()
	numPaths := e.tree.NumPaths()
	s := smt.NewSession(4 * (len(e.actions)*numPaths + numHoles + 1))
	e.session = s
	e.labels = make(map[z.Lit]label)

	e.holes = make([]*smt.Int, numHoles)
	for i, h := range e.tree.Holes() {
		x := s.NewInt(h.NumOptions)
		e.holes[i] = x
		for option := 0; option < h.NumOptions; option++ {
			e.labels[x.Eq(option).Not()] = label{kind: familyLabel, hole: i, option: option}
		}
	}
	if !e.singleCheck {
		e.twins = make([]*smt.Int, numHoles)
		for i, h := range e.tree.Holes() {
			e.twins[i] = s.NewInt(h.NumOptions)
		}
		e.harm = s.NewInt(numHoles)
		for i := 0; i < numHoles; i++ {
			e.labels[e.harm.Eq(i)] = label{kind: harmonizingLabel, hole: i}
		}
	}

	e.pick = make([]z.Lit, len(e.actions))
	for c := range e.pick {
		e.pick[c] = s.Lit()
		e.labels[e.pick[c].Not()] = label{kind: exclusionLabel, choice: c}
	}
	e.stateLit = make([]z.Lit, e.NumStates())
	for state := range e.stateLit {
		m := s.Lit()
		e.stateLit[state] = m
		e.labels[m] = label{kind: stateLabel, state: state}
		s.AddClause(append([]z.Lit{m.Not()}, e.pick[e.rowGroups[state]:e.rowGroups[state+1]]...)...)
	}

	// per state and path, the negated branch decisions of every step
	steps := make([][][]z.Lit, e.NumStates())
	for state := range steps {
		steps[state] = make([][]z.Lit, numPaths)
		for p := 0; p < numPaths; p++ {
			path := e.tree.Path(p)
			negated := make([]z.Lit, len(path.Steps))
			for i, step := range path.Steps {
				node := e.tree.Node(step.Node)
				negated[i] = e.branch(e.holes[node.VariableHole], e.holes[node.ThresholdHole], step.Branch, e.valuation[state]).Not()
			}
			steps[state][p] = negated
		}
	}

	start := time.Now()
	e.plain = make([][]z.Lit, len(e.actions))
	for c, action := range e.actions {
		state := e.choiceToState[c]
		e.plain[c] = make([]z.Lit, numPaths)
		for p := 0; p < numPaths; p++ {
			path := e.tree.Path(p)
			formula := s.Ors(append(steps[state][p], e.holes[path.ActionHole].Eq(action))...)
			l := s.Lit()
			s.AddClause(l.Not(), e.pick[c].Not(), formula)
			e.plain[c][p] = l
			e.labels[l] = label{kind: pathLabel, choice: c, path: p}
		}
	}
	metrics.ObservePhase(metrics.PhaseColorChoices, start)

	if !e.singleCheck {
		start = time.Now()
		e.harmonized = make([][]z.Lit, len(e.actions))
		for c, action := range e.actions {
			state := e.choiceToState[c]
			e.harmonized[c] = make([]z.Lit, numPaths)
			for p := 0; p < numPaths; p++ {
				formula := e.harmonizedFormula(p, steps[state][p], action, e.valuation[state])
				l := s.Lit()
				s.AddClause(l.Not(), e.pick[c].Not(), formula)
				e.harmonized[c][p] = l
				e.labels[l] = label{kind: harmonizedLabel, choice: c, path: p}
			}
		}
		metrics.ObservePhase(metrics.PhaseHarmonizing, start)
	}

	s.Seal()
	s.Observe(metrics.EmitSolverCheck)
}

// branch is the literal "the step takes the given branch" in a state,
// reading the tested variable and the threshold from the given integers.
// The true branch is taken when valuation[variable] <= threshold.
func (e *Engine) branch(variable, threshold *smt.Int, taken bool, valuation []int) z.Lit {
	terms := make([]z.Lit, variable.Size())
	for v := range terms {
		le := threshold.Geq(valuation[v])
		if !taken {
			le = le.Not()
		}
		terms[v] = e.session.And(variable.Eq(v), le)
	}
	return e.session.Ors(terms...)
}

// harmonizedFormula weakens a path formula: for a hole h on the path the
// step that uses h may instead be evaluated with the twin of h, provided
// the harmonizing integer selects h.
func (e *Engine) harmonizedFormula(p int, negated []z.Lit, action int, valuation []int) z.Lit {
	s := e.session
	path := e.tree.Path(p)
	variants := append([]z.Lit(nil), negated...)
	variants = append(variants, e.holes[path.ActionHole].Eq(action))
	for _, step := range path.Steps {
		node := e.tree.Node(step.Node)
		v, t := node.VariableHole, node.ThresholdHole
		variants = append(variants,
			s.And(e.harm.Eq(v), e.branch(e.twins[v], e.holes[t], step.Branch, valuation).Not()),
			s.And(e.harm.Eq(t), e.branch(e.holes[v], e.twins[t], step.Branch, valuation).Not()),
		)
	}
	a := path.ActionHole
	variants = append(variants, s.And(e.harm.Eq(a), e.twins[a].Eq(action)))
	return s.Ors(variants...)
}

// familyAssumptions restricts every hole integer to the options f allows.
func (e *Engine) familyAssumptions(f *family.Family) ([]z.Lit, error) {
	if f.NumHoles() != len(e.holes) {
		return nil, errors.Wrapf(ErrFamilyMismatch, "family has %d holes, tree has %d", f.NumHoles(), len(e.holes))
	}
	var lits []z.Lit
	for h, x := range e.holes {
		options := f.Options(h)
		if len(options) == 0 {
			return nil, errors.Wrapf(ErrFamilyMismatch, "hole %s has no options", e.tree.Hole(h).Name)
		}
		if options[0] < 0 || options[len(options)-1] >= x.Size() {
			return nil, errors.Wrapf(ErrFamilyMismatch, "hole %s has options outside 0..%d", e.tree.Hole(h).Name, x.Size()-1)
		}
		lits = append(lits, x.Exclude(options)...)
	}
	return lits, nil
}

// enabledPaths memoizes, for one family, the paths some member of the
// family may take in each state.
type enabledPaths struct {
	tree      *tree.Tree
	family    *family.Family
	valuation [][]int
	paths     [][]int
	done      []bool
}

func (e *Engine) enabledPaths(f *family.Family) *enabledPaths {
	return &enabledPaths{
		tree:      e.tree,
		family:    f,
		valuation: e.valuation,
		paths:     make([][]int, len(e.valuation)),
		done:      make([]bool, len(e.valuation)),
	}
}

func (ep *enabledPaths) in(state int) []int {
	if !ep.done[state] {
		for p := 0; p < ep.tree.NumPaths(); p++ {
			if ep.tree.PathEnabled(p, ep.family, ep.valuation[state]) {
				ep.paths[state] = append(ep.paths[state], p)
			}
		}
		ep.done[state] = true
	}
	return ep.paths[state]
}
