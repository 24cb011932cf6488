package tree

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/linusheck/synthesis/pkg/coloring/family"
)

// ErrMalformedTree is returned by New for node lists that do not describe
// a rooted binary tree.
var ErrMalformedTree = errors.New("malformed decision tree")

// NodeSpec is one entry of a flattened tree description. Child ids equal
// to the number of nodes mean "no child".
type NodeSpec struct {
	Parent int `json:"parent"`
	True   int `json:"childTrue"`
	False  int `json:"childFalse"`
}

// Variable is a discrete state variable together with the ordered list
// of values it may take.
type Variable struct {
	Name   string  `json:"name"`
	Domain []int64 `json:"domain"`
}

type NodeType int

const (
	Inner NodeType = iota
	Terminal
)

func (t NodeType) String() string {
	switch t {
	case Inner:
		return "inner"
	case Terminal:
		return "terminal"
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node is an entry of the tree arena. Inner nodes branch on
// valuation[variable] <= threshold and use VariableHole, ThresholdHole,
// True and False; terminal nodes use ActionHole.
type Node struct {
	ID     int
	Parent int
	Type   NodeType

	VariableHole  int
	ThresholdHole int
	True          int
	False         int

	ActionHole int
}

// Step records the branch taken at an inner node.
type Step struct {
	Node   int
	Branch bool
}

// Path is a root-to-leaf route through the tree.
type Path struct {
	Steps      []Step
	Terminal   int
	ActionHole int
}

// Tree is a decision tree whose branching predicates and terminal
// actions are holes.
type Tree struct {
	nodes         []Node
	holes         []Hole
	paths         []Path
	terminalPath  map[int]int
	variables     []Variable
	numActions    int
	numThresholds int
}

// New builds a tree from a flattened node list. Node 0 is the root.
func New(specs []NodeSpec, variables []Variable, numActions int) (*Tree, error) {
	n := len(specs)
	if n == 0 {
		return nil, errors.Wrap(ErrMalformedTree, "no nodes")
	}
	if numActions < 1 {
		return nil, errors.Errorf("number of actions must be positive, got %d", numActions)
	}
	t := &Tree{
		nodes:        make([]Node, n),
		terminalPath: make(map[int]int),
		variables:    variables,
		numActions:   numActions,
	}
	for _, v := range variables {
		if len(v.Domain) == 0 {
			return nil, errors.Errorf("variable %q has an empty domain", v.Name)
		}
		if len(v.Domain) > t.numThresholds {
			t.numThresholds = len(v.Domain)
		}
	}

	for id, spec := range specs {
		if (spec.True != n) != (spec.False != n) {
			return nil, errors.Wrapf(ErrMalformedTree, "inner node %d has only one child", id)
		}
		node := Node{ID: id, Parent: -1, True: -1, False: -1, VariableHole: -1, ThresholdHole: -1, ActionHole: -1}
		if spec.True == n {
			node.Type = Terminal
		} else {
			for _, child := range []int{spec.True, spec.False} {
				if child < 0 || child >= n {
					return nil, errors.Wrapf(ErrMalformedTree, "node %d refers to unknown child %d", id, child)
				}
			}
			if spec.True == spec.False {
				return nil, errors.Wrapf(ErrMalformedTree, "node %d has the same node %d as both children", id, spec.True)
			}
			if len(variables) == 0 {
				return nil, errors.Wrapf(ErrMalformedTree, "inner node %d cannot branch without variables", id)
			}
			node.Type = Inner
			node.True = spec.True
			node.False = spec.False
		}
		t.nodes[id] = node
	}

	for id := range t.nodes {
		node := &t.nodes[id]
		if node.Type != Inner {
			continue
		}
		for _, child := range []int{node.True, node.False} {
			if child == 0 {
				return nil, errors.Wrapf(ErrMalformedTree, "root is a child of node %d", id)
			}
			if t.nodes[child].Parent != -1 {
				return nil, errors.Wrapf(ErrMalformedTree, "node %d has more than one parent", child)
			}
			if specs[child].Parent != id {
				return nil, errors.Wrapf(ErrMalformedTree, "node %d lists parent %d but is a child of %d", child, specs[child].Parent, id)
			}
			t.nodes[child].Parent = id
		}
	}

	visited := make([]bool, n)
	var visit func(id int)
	visit = func(id int) {
		visited[id] = true
		if t.nodes[id].Type == Inner {
			visit(t.nodes[id].True)
			visit(t.nodes[id].False)
		}
	}
	visit(0)
	for id, ok := range visited {
		if !ok {
			return nil, errors.Wrapf(ErrMalformedTree, "node %d is not reachable from the root", id)
		}
	}

	t.createHoles(0)
	t.createPaths(0, nil)
	return t, nil
}

// createHoles numbers holes bottom-up: both subtrees first, then the node
// itself.
func (t *Tree) createHoles(id int) {
	node := &t.nodes[id]
	if node.Type == Terminal {
		node.ActionHole = t.addHole(fmt.Sprintf("A%d", id), KindAction, t.numActions, id)
		return
	}
	t.createHoles(node.True)
	t.createHoles(node.False)
	node.VariableHole = t.addHole(fmt.Sprintf("V%d", id), KindVariable, len(t.variables), id)
	node.ThresholdHole = t.addHole(fmt.Sprintf("T%d", id), KindThreshold, t.numThresholds, id)
}

func (t *Tree) addHole(name string, kind Kind, numOptions, node int) int {
	index := len(t.holes)
	t.holes = append(t.holes, Hole{
		Index:      index,
		Name:       name,
		Kind:       kind,
		NumOptions: numOptions,
		Node:       node,
	})
	return index
}

func (t *Tree) createPaths(id int, prefix []Step) {
	node := t.nodes[id]
	if node.Type == Terminal {
		t.terminalPath[id] = len(t.paths)
		t.paths = append(t.paths, Path{
			Steps:      append([]Step(nil), prefix...),
			Terminal:   id,
			ActionHole: node.ActionHole,
		})
		return
	}
	t.createPaths(node.True, append(prefix, Step{Node: id, Branch: true}))
	t.createPaths(node.False, append(prefix, Step{Node: id, Branch: false}))
}

func (t *Tree) NumNodes() int {
	return len(t.nodes)
}

func (t *Tree) NumPaths() int {
	return len(t.paths)
}

func (t *Tree) NumHoles() int {
	return len(t.holes)
}

func (t *Tree) NumActions() int {
	return t.numActions
}

// NumThresholds is the number of options of every threshold hole.
func (t *Tree) NumThresholds() int {
	return t.numThresholds
}

func (t *Tree) Variables() []Variable {
	return t.variables
}

func (t *Tree) Node(id int) Node {
	return t.nodes[id]
}

func (t *Tree) Path(index int) Path {
	return t.paths[index]
}

func (t *Tree) Hole(index int) Hole {
	return t.holes[index]
}

func (t *Tree) Holes() []Hole {
	return t.holes
}

// StepHoles returns the holes that decide a step: the variable hole and
// the threshold hole of its node.
func (t *Tree) StepHoles(step Step) []int {
	node := t.nodes[step.Node]
	return []int{node.VariableHole, node.ThresholdHole}
}

// FamilyInfo describes every hole in index order.
func (t *Tree) FamilyInfo() []HoleInfo {
	info := make([]HoleInfo, len(t.holes))
	for i, h := range t.holes {
		info[i] = h.Info()
	}
	return info
}

// Family returns the family admitting every option of every hole.
func (t *Tree) Family() *family.Family {
	numOptions := make([]int, len(t.holes))
	for i, h := range t.holes {
		numOptions[i] = h.NumOptions
	}
	return family.Full(numOptions)
}

// PathEnabled reports whether some member of f may take path in a state
// with the given valuation (domain indices, one per variable). The
// terminal action is not considered.
func (t *Tree) PathEnabled(path int, f *family.Family, valuation []int) bool {
	for _, step := range t.paths[path].Steps {
		if !t.stepEnabled(step, f, valuation) {
			return false
		}
	}
	return true
}

func (t *Tree) stepEnabled(step Step, f *family.Family, valuation []int) bool {
	node := t.nodes[step.Node]
	if f.Size(node.ThresholdHole) == 0 {
		return false
	}
	for _, v := range f.Options(node.VariableHole) {
		if v >= len(valuation) {
			continue
		}
		value := valuation[v]
		if step.Branch && f.Max(node.ThresholdHole) >= value {
			return true
		}
		if !step.Branch && f.Min(node.ThresholdHole) < value {
			return true
		}
	}
	return false
}

// Evaluate follows the tree under a concrete hole assignment and returns
// the path taken in a state with the given valuation together with the
// action it selects.
func (t *Tree) Evaluate(assignment []int, valuation []int) (path, action int) {
	id := 0
	for t.nodes[id].Type == Inner {
		node := t.nodes[id]
		if valuation[assignment[node.VariableHole]] <= assignment[node.ThresholdHole] {
			id = node.True
		} else {
			id = node.False
		}
	}
	path = t.terminalPath[id]
	return path, assignment[t.paths[path].ActionHole]
}
