// Package problem reads coloring problems: a model, the variables the
// tree may test, the tree shape and a list of queries to run against
// the resulting engine.
package problem

import (
	"os"

	"github.com/bits-and-blooms/bitset"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/linusheck/synthesis/pkg/coloring"
	"github.com/linusheck/synthesis/pkg/coloring/family"
	"github.com/linusheck/synthesis/pkg/coloring/tree"
	"github.com/linusheck/synthesis/pkg/mdp"
)

type Problem struct {
	Variables []tree.Variable `json:"variables"`
	Tree      []tree.NodeSpec `json:"tree"`
	// NumActions overrides the number of actions derived from the model.
	NumActions int        `json:"numActions,omitempty"`
	Model      mdp.Sparse `json:"model"`
	Queries    []Query    `json:"queries,omitempty"`
}

// Query is a selection query, or a consistency query when Choices is
// set. A missing Family stands for the full family of the tree.
type Query struct {
	Name    string              `json:"name"`
	Family  [][]int             `json:"family,omitempty"`
	Base    []int               `json:"base,omitempty"`
	Choices []int               `json:"choices,omitempty"`
	Hint    []coloring.CorePair `json:"hint,omitempty"`
}

// Load reads a problem from a YAML or JSON file.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return p, nil
}

func Parse(data []byte) (*Problem, error) {
	var p Problem
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := p.Model.Build(); err != nil {
		return nil, errors.Wrap(err, "invalid model")
	}
	if len(p.Tree) == 0 {
		return nil, errors.New("no tree nodes")
	}
	for i, q := range p.Queries {
		if q.Name == "" {
			return nil, errors.Errorf("query %d has no name", i)
		}
		if q.Hint != nil && q.Choices == nil {
			return nil, errors.Errorf("query %q has a hint but no choices", q.Name)
		}
	}
	return &p, nil
}

// Engine builds the coloring engine of the problem.
func (p *Problem) Engine(options ...coloring.Option) (*coloring.Engine, error) {
	if p.NumActions > 0 {
		options = append(options, coloring.WithNumActions(p.NumActions))
	}
	return coloring.New(&p.Model, p.Variables, p.Tree, options...)
}

// Consistency reports whether q asks for a consistency check.
func (q Query) Consistency() bool {
	return q.Choices != nil
}

// FamilyFor returns the family of q for an engine.
func (q Query) FamilyFor(e *coloring.Engine) *family.Family {
	if q.Family == nil {
		return e.Family()
	}
	return family.New(q.Family)
}

// ChoiceSet returns the choices of q, or the base of a selection query,
// as a bitset over the choices of e. A selection query without a base
// uses every choice.
func (q Query) ChoiceSet(e *coloring.Engine) (*bitset.BitSet, error) {
	n := uint(e.NumChoices())
	list := q.Base
	if q.Consistency() {
		list = q.Choices
	} else if list == nil {
		return bitset.New(n).FlipRange(0, n), nil
	}
	b := bitset.New(n)
	for _, c := range list {
		if c < 0 || uint(c) >= n {
			return nil, errors.Errorf("query %q: choice %d out of range", q.Name, c)
		}
		b.Set(uint(c))
	}
	return b, nil
}

// Answer is the outcome of a query.
type Answer struct {
	Query      string              `json:"query"`
	Family     string              `json:"family"`
	Selected   []int               `json:"selected,omitempty"`
	Consistent *bool               `json:"consistent,omitempty"`
	Assignment [][]int             `json:"assignment,omitempty"`
	Core       []coloring.CorePair `json:"core,omitempty"`
	// Harmonizing names the hole holding two options.
	Harmonizing string `json:"harmonizing,omitempty"`
}

// Run answers q with e.
func (q Query) Run(e *coloring.Engine) (*Answer, error) {
	f := q.FamilyFor(e)
	choices, err := q.ChoiceSet(e)
	if err != nil {
		return nil, err
	}
	a := &Answer{Query: q.Name, Family: f.String()}
	if !q.Consistency() {
		selection, err := e.SelectCompatibleChoicesFrom(f, choices)
		if err != nil {
			return nil, errors.Wrapf(err, "query %q", q.Name)
		}
		a.Selected = make([]int, 0, selection.Count())
		for c, ok := selection.NextSet(0); ok; c, ok = selection.NextSet(c + 1) {
			a.Selected = append(a.Selected, int(c))
		}
		return a, nil
	}

	var result *coloring.Result
	if q.Hint != nil {
		result, err = e.AreChoicesConsistentUseHint(choices, f, q.Hint)
	} else {
		result, err = e.AreChoicesConsistent(choices, f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query %q", q.Name)
	}
	a.Consistent = &result.Consistent
	a.Assignment = result.Assignment
	a.Core = result.Core
	if result.HarmonizingHole >= 0 {
		a.Harmonizing = e.FamilyInfo()[result.HarmonizingHole].Name
	}
	return a, nil
}
