package coloring

import (
	"fmt"
	"time"

	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/linusheck/synthesis/pkg/coloring/family"
	"github.com/linusheck/synthesis/pkg/coloring/smt"
	"github.com/linusheck/synthesis/pkg/coloring/tree"
	"github.com/linusheck/synthesis/pkg/mdp"
	"github.com/linusheck/synthesis/pkg/metrics"
)

// Engine colors the choices of a model with the paths of a parametric
// decision tree and answers admissibility and consistency queries for
// subfamilies of the tree.
//
// Every formula is compiled once by New into a single solver session.
// Queries only push and pop assumptions, so an Engine is not safe for
// concurrent use.
type Engine struct {
	log            logrus.FieldLogger
	tracer         Tracer
	numActions     int
	singleCheck    bool
	familyCheck    bool
	schedulerCheck bool
	minimizeCore   bool

	initial       int
	rowGroups     []int
	choiceToState []int
	destinations  [][]int
	actions       []int
	variables     []tree.Variable
	// valuation holds per state the domain index of every variable.
	valuation [][]int

	tree    *tree.Tree
	session *smt.Session
	holes   []*smt.Int
	twins   []*smt.Int
	harm    *smt.Int
	// pick[c] holds when the scheduler takes choice c; stateLit[s]
	// forces a pick in state s.
	pick       []z.Lit
	stateLit   []z.Lit
	plain      [][]z.Lit
	harmonized [][]z.Lit
	labels     map[z.Lit]label
}

// New builds an engine for a model, its state variables and a flattened
// tree description in which node 0 is the root and a child id equal to
// len(nodes) means "no child".
func New(model mdp.Model, variables []tree.Variable, nodes []tree.NodeSpec, options ...Option) (*Engine, error) {
	defer metrics.ObservePhase(metrics.PhaseBuild, time.Now())

	e := &Engine{minimizeCore: true}
	if err := e.loadModel(model); err != nil {
		return nil, err
	}
	for _, option := range append(options, defaults...) {
		if err := option(e); err != nil {
			return nil, err
		}
	}
	if err := e.loadValuations(model, variables); err != nil {
		return nil, err
	}
	t, err := tree.New(nodes, variables, e.numActions)
	if err != nil {
		return nil, err
	}
	e.tree = t
	e.encode()

	e.log.WithFields(logrus.Fields{
		"states":  e.NumStates(),
		"choices": e.NumChoices(),
		"nodes":   e.NumNodes(),
		"paths":   e.NumPaths(),
		"holes":   e.NumHoles(),
	}).Debug("coloring engine ready")
	return e, nil
}

func (e *Engine) loadModel(model mdp.Model) error {
	numStates := model.NumStates()
	if numStates == 0 {
		return errors.Wrap(ErrInvalidModel, "no states")
	}
	e.initial = model.InitialState()
	if e.initial < 0 || e.initial >= numStates {
		return errors.Wrapf(ErrInvalidModel, "initial state %d out of range", e.initial)
	}
	rowGroups := model.RowGroups()
	if len(rowGroups) != numStates+1 || rowGroups[0] != 0 {
		return errors.Wrapf(ErrInvalidModel, "row groups do not cover %d states", numStates)
	}
	e.rowGroups = append([]int(nil), rowGroups...)

	numChoices := rowGroups[numStates]
	e.choiceToState = make([]int, 0, numChoices)
	e.destinations = make([][]int, 0, numChoices)
	e.actions = make([]int, 0, numChoices)
	for state := 0; state < numStates; state++ {
		if rowGroups[state+1] <= rowGroups[state] {
			return errors.Wrapf(ErrInvalidModel, "state %d has no choices", state)
		}
		for choice := rowGroups[state]; choice < rowGroups[state+1]; choice++ {
			action := model.Action(choice)
			if action < 0 {
				return errors.Wrapf(ErrInvalidModel, "choice %d has negative action %d", choice, action)
			}
			dsts := model.Destinations(choice)
			for _, dst := range dsts {
				if dst < 0 || dst >= numStates {
					return errors.Wrapf(ErrInvalidModel, "choice %d leads to unknown state %d", choice, dst)
				}
			}
			e.choiceToState = append(e.choiceToState, state)
			e.destinations = append(e.destinations, append([]int(nil), dsts...))
			e.actions = append(e.actions, action)
		}
	}
	return nil
}

func (e *Engine) loadValuations(model mdp.Model, variables []tree.Variable) error {
	e.variables = variables
	e.valuation = make([][]int, e.NumStates())
	for state := range e.valuation {
		e.valuation[state] = make([]int, len(variables))
		for i, v := range variables {
			value, ok := model.Value(state, v.Name)
			if !ok {
				return errors.Wrapf(ErrVariableNotFound, "variable %q in state %d", v.Name, state)
			}
			index := -1
			for j, option := range v.Domain {
				if option == value {
					index = j
					break
				}
			}
			if index < 0 {
				return errors.Wrapf(ErrValueNotInDomain, "variable %q has value %d in state %d", v.Name, value, state)
			}
			e.valuation[state][i] = index
		}
	}
	return nil
}

func (e *Engine) NumStates() int {
	return len(e.rowGroups) - 1
}

func (e *Engine) NumChoices() int {
	return len(e.actions)
}

func (e *Engine) NumVariables() int {
	return len(e.variables)
}

func (e *Engine) NumNodes() int {
	return e.tree.NumNodes()
}

func (e *Engine) NumPaths() int {
	return e.tree.NumPaths()
}

func (e *Engine) NumHoles() int {
	return e.tree.NumHoles()
}

// FamilyInfo describes every hole in index order.
func (e *Engine) FamilyInfo() []tree.HoleInfo {
	return e.tree.FamilyInfo()
}

// Family returns the family admitting every option of every hole.
func (e *Engine) Family() *family.Family {
	return e.tree.Family()
}

// Tree exposes the decision tree the engine was built for.
func (e *Engine) Tree() *tree.Tree {
	return e.tree
}

// Valuation returns the domain index of every variable in a state.
func (e *Engine) Valuation(state int) []int {
	return e.valuation[state]
}

func (e *Engine) familyLogger(operation string, f *family.Family) logrus.FieldLogger {
	fields := logrus.Fields{"operation": operation}
	if h, err := f.Hash(); err == nil {
		fields["family"] = fmt.Sprintf("%016x", h)
	}
	return e.log.WithFields(fields)
}
