package coloring

import (
	"github.com/pkg/errors"

	"github.com/linusheck/synthesis/pkg/coloring/tree"
)

// Errors returned by the engine indicate malformed input or a violated
// internal invariant; they are not recoverable by refining the family.
// Negative answers (no admissible choices, inconsistent choices) are
// reported in ordinary results instead. Use errors.Cause to compare.
var (
	ErrMalformedTree       = tree.ErrMalformedTree
	ErrVariableNotFound    = errors.New("state variable not found")
	ErrValueNotInDomain    = errors.New("state value not in variable domain")
	ErrInvalidModel        = errors.New("invalid model")
	ErrFamilyMismatch      = errors.New("family does not match the tree")
	ErrFamilyUnsatisfiable = errors.New("family is unsatisfiable")
	ErrHarmonizingUnsat    = errors.New("harmonized unsat core is not satisfiable")
	ErrCoreNotFound        = errors.New("all states explored but no unsat core found")
)
