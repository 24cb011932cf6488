package smt

import (
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

const (
	satisfiable   = 1
	unsatisfiable = -1
)

// Session is a long-lived incremental solver. Formulas are built as a
// circuit and clauses while the session is open for construction; Seal
// hands them to the solver, after which only scoped assumptions change
// between checks.
//
// A Session is not safe for concurrent use.
type Session struct {
	g        *gini.Gini
	c        *logic.C
	sealed   bool
	frames   []*Scope
	observer func(sat bool, elapsed time.Duration)
	buf      []z.Lit
}

// NewSession returns an empty session. capHint sizes the circuit.
func NewSession(capHint int) *Session {
	return &Session{
		g: gini.New(),
		c: logic.NewCCap(capHint),
	}
}

// Observe installs a callback invoked after every Check.
func (s *Session) Observe(f func(sat bool, elapsed time.Duration)) {
	s.observer = f
}

// Lit returns a fresh input literal.
func (s *Session) Lit() z.Lit {
	s.building()
	return s.c.Lit()
}

func (s *Session) True() z.Lit {
	return s.c.T
}

func (s *Session) False() z.Lit {
	return s.c.F
}

func (s *Session) And(a, b z.Lit) z.Lit {
	s.building()
	return s.c.And(a, b)
}

// Ands returns the conjunction of ms, True for no arguments.
func (s *Session) Ands(ms ...z.Lit) z.Lit {
	s.building()
	return s.c.Ands(ms...)
}

// Ors returns the disjunction of ms, False for no arguments.
func (s *Session) Ors(ms ...z.Lit) z.Lit {
	s.building()
	return s.c.Ors(ms...)
}

// AddClause permanently asserts the disjunction of ms. Clauses can only
// be added before Seal.
func (s *Session) AddClause(ms ...z.Lit) {
	s.building()
	for _, m := range ms {
		s.g.Add(m)
	}
	s.g.Add(z.LitNull)
}

func (s *Session) building() {
	if s.sealed {
		panic("smt: formula construction on a sealed session")
	}
}

// Seal translates the circuit to CNF and closes the session for
// construction.
func (s *Session) Seal() {
	if s.sealed {
		return
	}
	s.c.ToCnf(s.g)
	s.g.Add(s.c.T)
	s.g.Add(z.LitNull)
	s.sealed = true
}

func (s *Session) Sealed() bool {
	return s.sealed
}

// Depth is the number of open scopes.
func (s *Session) Depth() int {
	return len(s.frames)
}

// Check solves under the assumptions of every open scope.
func (s *Session) Check() bool {
	if !s.sealed {
		panic("smt: check on an unsealed session")
	}
	s.buf = s.buf[:0]
	for _, sc := range s.frames {
		s.buf = append(s.buf, sc.lits...)
	}
	start := time.Now()
	s.g.Assume(s.buf...)
	sat := s.g.Solve() == satisfiable
	if s.observer != nil {
		s.observer(sat, time.Since(start))
	}
	return sat
}

// Value reports the value of m in the model of the last satisfiable
// Check.
func (s *Session) Value(m z.Lit) bool {
	return s.g.Value(m)
}

// Why returns the assumptions responsible for the last unsatisfiable
// Check.
func (s *Session) Why() []z.Lit {
	return s.g.Why(nil)
}

// Shrink removes literals from an unsatisfiable set of candidate
// assumptions one at a time, keeping a removal whenever the rest stays
// unsatisfiable. base returns the assumptions that must accompany a
// given candidate subset. The result is minimal with respect to
// single removals.
func (s *Session) Shrink(candidates []z.Lit, base func(kept []z.Lit) []z.Lit) []z.Lit {
	kept := append([]z.Lit(nil), candidates...)
	for i := 0; i < len(kept); {
		trial := make([]z.Lit, 0, len(kept)-1)
		trial = append(trial, kept[:i]...)
		trial = append(trial, kept[i+1:]...)

		sc := s.Push()
		sc.Assume(base(trial)...)
		sc.Assume(trial...)
		sat := s.Check()
		var why []z.Lit
		if !sat {
			why = s.Why()
		}
		sc.Close()

		if sat {
			i++
			continue
		}
		kept = refine(trial, why)
	}
	return kept
}

// refine keeps the members of set that appear in why, preserving order.
// Literals required by every unsatisfiable subset are always in why, so
// positions of already confirmed literals do not move.
func refine(set, why []z.Lit) []z.Lit {
	in := make(map[z.Lit]struct{}, len(why))
	for _, m := range why {
		in[m] = struct{}{}
	}
	result := set[:0]
	for _, m := range set {
		if _, ok := in[m]; ok {
			result = append(result, m)
		}
	}
	return result
}
