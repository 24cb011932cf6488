package coloring

import (
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/linusheck/synthesis/pkg/coloring/family"
	"github.com/linusheck/synthesis/pkg/metrics"
)

// SelectCompatibleChoices returns the choices some member of f may take
// in the states reachable under f. An empty result means f induces no
// scheduler.
func (e *Engine) SelectCompatibleChoices(f *family.Family) (*bitset.BitSet, error) {
	n := uint(e.NumChoices())
	return e.SelectCompatibleChoicesFrom(f, bitset.New(n).FlipRange(0, n))
}

// SelectCompatibleChoicesFrom is SelectCompatibleChoices restricted to the
// choices in base.
//
// States are explored breadth-first from the initial state. A choice is
// admissible when a path enabled in its state allows its action. A state
// without admissible choices rejects f, unless f is a single assignment:
// then the last choice of the state is taken instead. A nil base admits
// every choice.
func (e *Engine) SelectCompatibleChoicesFrom(f *family.Family, base *bitset.BitSet) (selection *bitset.BitSet, err error) {
	if base == nil {
		n := uint(e.NumChoices())
		base = bitset.New(n).FlipRange(0, n)
	}
	log := e.familyLogger(metrics.SelectCompatibleChoices, f)
	defer func() {
		switch {
		case err != nil:
			metrics.EmitQuery(metrics.SelectCompatibleChoices, metrics.Failed)
		case selection.None():
			metrics.EmitQuery(metrics.SelectCompatibleChoices, metrics.Rejected)
		default:
			metrics.EmitQuery(metrics.SelectCompatibleChoices, metrics.Admissible)
		}
	}()

	familyLits, err := e.familyAssumptions(f)
	if err != nil {
		return nil, err
	}
	if e.familyCheck {
		if err := e.checkFamily(f, familyLits); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	paths := e.enabledPaths(f)
	assignment := f.IsAssignment()
	selection = bitset.New(uint(e.NumChoices()))
	reached := bitset.New(uint(e.NumStates()))
	fallback := bitset.New(uint(e.NumStates()))
	queue := []int{e.initial}
	reached.Set(uint(e.initial))
	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]

		admissible := false
		for c := e.rowGroups[state]; c < e.rowGroups[state+1]; c++ {
			if !base.Test(uint(c)) {
				continue
			}
			for _, p := range paths.in(state) {
				if f.Contains(e.tree.Path(p).ActionHole, e.actions[c]) {
					selection.Set(uint(c))
					admissible = true
					queue = e.enqueue(queue, reached, c)
					break
				}
			}
		}
		if admissible {
			continue
		}
		if !assignment {
			log.WithField("state", state).Debug("no admissible choice, rejecting family")
			metrics.ObservePhase(metrics.PhaseExploration, start)
			return selection.ClearAll(), nil
		}
		c := e.rowGroups[state+1] - 1
		log.WithFields(logrus.Fields{"state": state, "choice": c}).Debug("no admissible choice, enabling last choice")
		selection.Set(uint(c))
		fallback.Set(uint(state))
		queue = e.enqueue(queue, reached, c)
	}
	metrics.ObservePhase(metrics.PhaseExploration, start)

	if e.schedulerCheck && !e.schedulerExists(familyLits, paths, selection, reached.Difference(fallback)) {
		if assignment {
			log.Warn("hole assignment does not induce a consistent scheduler")
		} else {
			log.Debug("no consistent scheduler over the selected choices")
		}
		selection.ClearAll()
	}
	log.WithField("selected", selection.Count()).Debug("selected compatible choices")
	return selection, nil
}

// enqueue marks the unreached destinations of a choice as reached and
// appends them to queue.
func (e *Engine) enqueue(queue []int, reached *bitset.BitSet, choice int) []int {
	for _, dst := range e.destinations[choice] {
		if !reached.Test(uint(dst)) {
			reached.Set(uint(dst))
			queue = append(queue, dst)
		}
	}
	return queue
}

func (e *Engine) checkFamily(f *family.Family, familyLits []z.Lit) error {
	defer metrics.ObservePhase(metrics.PhaseFamilyCheck, time.Now())
	sc := e.session.Push()
	defer sc.Close()
	sc.Assume(familyLits...)
	if !e.session.Check() {
		return errors.Wrapf(ErrFamilyUnsatisfiable, "family %s", f)
	}
	return nil
}

// schedulerExists checks whether one choice among the selected ones can
// be picked in every given state such that all picks are consistent.
func (e *Engine) schedulerExists(familyLits []z.Lit, paths *enabledPaths, selection, states *bitset.BitSet) bool {
	defer metrics.ObservePhase(metrics.PhaseSchedulerCheck, time.Now())
	sc := e.session.Push()
	defer sc.Close()
	sc.Assume(familyLits...)
	for state, ok := states.NextSet(0); ok; state, ok = states.NextSet(state + 1) {
		base, labels := e.stateAssumptions(int(state), selection, paths)
		sc.Assume(base...)
		sc.Assume(labels...)
	}
	return e.session.Check()
}

// stateAssumptions returns, for a state with at least one choice in
// choices, the literals forcing a pick among those choices together with
// the labels of their enabled paths. States without such a choice yield
// nothing.
func (e *Engine) stateAssumptions(state int, choices *bitset.BitSet, paths *enabledPaths) (base, labels []z.Lit) {
	selected := false
	for c := e.rowGroups[state]; c < e.rowGroups[state+1]; c++ {
		if !choices.Test(uint(c)) {
			base = append(base, e.pick[c].Not())
			continue
		}
		selected = true
		for _, p := range paths.in(state) {
			labels = append(labels, e.plain[c][p])
		}
	}
	if !selected {
		return nil, nil
	}
	return append(base, e.stateLit[state]), labels
}
