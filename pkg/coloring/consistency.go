package coloring

import (
	"sort"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/linusheck/synthesis/pkg/coloring/family"
	"github.com/linusheck/synthesis/pkg/metrics"
)

// Result is the answer to a consistency query.
type Result struct {
	Consistent bool
	// Assignment holds one option per hole. In an inconsistent result
	// the harmonizing hole holds two ascending options instead; in
	// single consistency check mode it is nil.
	Assignment [][]int
	// Core lists the conflicting (choice, path) pairs of an inconsistent
	// result.
	Core []CorePair
	// HarmonizingHole is the hole holding two options, or -1.
	HarmonizingHole int
}

// AreChoicesConsistent decides whether some member of f induces a
// scheduler that, in every state owning a choice of choices, takes one of
// those choices.
//
// When it does not, the result carries an unsat core found by re-adding
// states breadth-first from the initial state, and a harmonized
// assignment: every hole takes one option except a single hole, which
// takes two options that explain the conflict.
func (e *Engine) AreChoicesConsistent(choices *bitset.BitSet, f *family.Family) (*Result, error) {
	return e.areChoicesConsistent(choices, f, nil, false)
}

// AreChoicesConsistentUseHint is AreChoicesConsistent for a caller that
// kept the core of a related query. The states of the hint are explored
// first and no check over all choices precedes the exploration.
func (e *Engine) AreChoicesConsistentUseHint(choices *bitset.BitSet, f *family.Family, hint []CorePair) (*Result, error) {
	return e.areChoicesConsistent(choices, f, hint, true)
}

func (e *Engine) areChoicesConsistent(choices *bitset.BitSet, f *family.Family, hint []CorePair, useHint bool) (result *Result, err error) {
	defer metrics.ObservePhase(metrics.PhaseConsistency, time.Now())
	defer func() {
		switch {
		case err != nil:
			metrics.EmitQuery(metrics.AreChoicesConsistent, metrics.Failed)
		case result.Consistent:
			metrics.EmitQuery(metrics.AreChoicesConsistent, metrics.Consistent)
		default:
			metrics.EmitQuery(metrics.AreChoicesConsistent, metrics.Inconsistent)
		}
	}()
	log := e.familyLogger(metrics.AreChoicesConsistent, f)

	familyLits, err := e.familyAssumptions(f)
	if err != nil {
		return nil, err
	}
	if choices == nil {
		return nil, errors.New("no choice set given")
	}
	if c, ok := choices.NextSet(uint(e.NumChoices())); ok {
		return nil, errors.Errorf("choice %d out of range, model has %d choices", c, e.NumChoices())
	}
	seeds := []int{e.initial}
	if useHint {
		if seeds, err = e.hintStates(hint); err != nil {
			return nil, err
		}
	}
	paths := e.enabledPaths(f)

	sc := e.session.Push()
	defer sc.Close()
	sc.Assume(familyLits...)

	if !useHint && e.checkAll(choices, paths) {
		log.Debug("choices are consistent")
		return &Result{Consistent: true, Assignment: e.assignment(), HarmonizingHole: -1}, nil
	}

	x, err := e.explore(choices, paths, seeds)
	if err != nil {
		return nil, err
	}
	if x.consistent {
		if !useHint {
			return nil, ErrCoreNotFound
		}
		log.Debug("choices are consistent")
		return &Result{Consistent: true, Assignment: e.assignment(), HarmonizingHole: -1}, nil
	}
	if len(x.core) == 0 {
		return nil, errors.Wrapf(ErrFamilyUnsatisfiable, "family %s", f)
	}

	core := x.core
	e.tracer.Trace(position{choices: x.choices, core: e.corePairs(core)})
	if e.minimizeCore && len(core) > 1 {
		core = e.minimize(core, x.base)
		e.tracer.Trace(position{choices: x.choices, core: e.corePairs(core), minimized: true})
	}
	metrics.EmitUnsatCore(len(core))
	result = &Result{Core: e.corePairs(core), HarmonizingHole: -1}
	if e.singleCheck {
		log.WithField("core", len(core)).Debug("choices are inconsistent")
		return result, nil
	}

	hole, assignment, err := e.harmonize(core, x.base)
	if err != nil {
		return nil, errors.Wrapf(err, "core %v", result.Core)
	}
	result.Assignment = assignment
	result.HarmonizingHole = hole
	log.WithFields(logrus.Fields{
		"core":        len(core),
		"harmonizing": e.tree.Hole(hole).Name,
		"options":     assignment[hole],
	}).Debug("choices are inconsistent")
	return result, nil
}

// hintStates lists the states of the hinted choices in hint order,
// followed by the initial state.
func (e *Engine) hintStates(hint []CorePair) ([]int, error) {
	seen := make(map[int]struct{}, len(hint)+1)
	var states []int
	for _, pair := range hint {
		if pair.Choice < 0 || pair.Choice >= e.NumChoices() {
			return nil, errors.Errorf("hint %s refers to unknown choice", pair)
		}
		state := e.choiceToState[pair.Choice]
		if _, ok := seen[state]; !ok {
			seen[state] = struct{}{}
			states = append(states, state)
		}
	}
	if _, ok := seen[e.initial]; !ok {
		states = append(states, e.initial)
	}
	return states, nil
}

// checkAll asserts the formulas of every choice at once.
func (e *Engine) checkAll(choices *bitset.BitSet, paths *enabledPaths) bool {
	sc := e.session.Push()
	defer sc.Close()
	for state := 0; state < e.NumStates(); state++ {
		base, labels := e.stateAssumptions(state, choices, paths)
		sc.Assume(base...)
		sc.Assume(labels...)
	}
	return e.session.Check()
}

type exploration struct {
	consistent bool
	// core holds the path labels of the unsat core.
	core []z.Lit
	// base holds the state and exclusion literals of the explored states.
	base    []z.Lit
	choices []int
}

// explore adds states breadth-first from seeds, checking after each
// state, until the asserted formulas become unsatisfiable. States the
// choices never reach are swept in index order once the queue runs dry.
func (e *Engine) explore(choices *bitset.BitSet, paths *enabledPaths, seeds []int) (*exploration, error) {
	defer metrics.ObservePhase(metrics.PhaseCoreDerivation, time.Now())
	sc := e.session.Push()
	defer sc.Close()

	x := &exploration{}
	reached := bitset.New(uint(e.NumStates()))
	var queue []int
	for _, state := range seeds {
		if !reached.Test(uint(state)) {
			reached.Set(uint(state))
			queue = append(queue, state)
		}
	}
	checked := false
	sweep := 0
	for {
		if len(queue) == 0 {
			for sweep < e.NumStates() && reached.Test(uint(sweep)) {
				sweep++
			}
			if sweep == e.NumStates() {
				break
			}
			reached.Set(uint(sweep))
			queue = append(queue, sweep)
		}
		state := queue[0]
		queue = queue[1:]

		base, labels := e.stateAssumptions(state, choices, paths)
		if base == nil {
			continue
		}
		sc.Assume(base...)
		sc.Assume(labels...)
		x.base = append(x.base, base...)
		for c := e.rowGroups[state]; c < e.rowGroups[state+1]; c++ {
			if choices.Test(uint(c)) {
				x.choices = append(x.choices, c)
				queue = e.enqueue(queue, reached, c)
			}
		}
		checked = true
		if !e.session.Check() {
			x.core = e.pathLabels(e.session.Why())
			return x, nil
		}
	}
	// no state owns a choice: only the family is asserted
	if !checked && !e.session.Check() {
		return x, nil
	}
	x.consistent = true
	return x, nil
}

func (e *Engine) minimize(core, base []z.Lit) []z.Lit {
	defer metrics.ObservePhase(metrics.PhaseCoreMinimization, time.Now())
	return e.session.Shrink(core, func([]z.Lit) []z.Lit {
		return base
	})
}

// harmonize weakens the formulas of the core so that one hole may take a
// second value and finds a hole for which the weakened core is
// satisfiable. Holes closer to the root are tried first.
func (e *Engine) harmonize(core, base []z.Lit) (int, [][]int, error) {
	defer metrics.ObservePhase(metrics.PhaseCoreAnalysis, time.Now())
	sc := e.session.Push()
	defer sc.Close()
	sc.Assume(base...)
	for _, m := range core {
		l := e.labels[m]
		sc.Assume(e.harmonized[l.choice][l.path])
	}

	for _, hole := range e.harmonizingCandidates(core) {
		try := e.session.Push()
		try.Assume(e.harm.Eq(hole))
		sat := e.session.Check()
		try.Close()
		if !sat {
			continue
		}
		assignment := e.assignment()
		options := []int{assignment[hole][0], e.twins[hole].Value()}
		sort.Ints(options)
		assignment[hole] = options
		return hole, assignment, nil
	}
	return -1, nil, ErrHarmonizingUnsat
}

// harmonizingCandidates lists the holes on the paths of the core in
// descending index order. Holes are numbered bottom-up, so ancestors
// come before their descendants.
func (e *Engine) harmonizingCandidates(core []z.Lit) []int {
	seen := make(map[int]struct{})
	var holes []int
	add := func(h int) {
		if _, ok := seen[h]; !ok {
			seen[h] = struct{}{}
			holes = append(holes, h)
		}
	}
	for _, m := range core {
		path := e.tree.Path(e.labels[m].path)
		for _, step := range path.Steps {
			for _, h := range e.tree.StepHoles(step) {
				add(h)
			}
		}
		add(path.ActionHole)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(holes)))
	return holes
}

// assignment reads one option per hole from the last model.
func (e *Engine) assignment() [][]int {
	result := make([][]int, len(e.holes))
	for h, x := range e.holes {
		result[h] = []int{x.Value()}
	}
	return result
}
