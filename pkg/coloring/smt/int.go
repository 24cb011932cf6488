package smt

import (
	"fmt"

	"github.com/go-air/gini/z"
)

// ladderThreshold is the domain size above which at-most-one is encoded
// with a sequential counter instead of pairwise clauses.
const ladderThreshold = 8

// Int is a finite-domain integer over 0..n-1, one-hot encoded. Exactly one
// of its literals holds in every model.
type Int struct {
	s    *Session
	lits []z.Lit
	geq  []z.Lit
}

// NewInt allocates an integer with n values and asserts that it takes
// exactly one of them.
func (s *Session) NewInt(n int) *Int {
	if n < 1 {
		panic(fmt.Sprintf("smt: integer with %d values", n))
	}
	x := &Int{s: s, lits: make([]z.Lit, n), geq: make([]z.Lit, n)}
	for i := range x.lits {
		x.lits[i] = s.Lit()
	}
	s.AddClause(x.lits...)
	if n <= ladderThreshold {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				s.AddClause(x.lits[i].Not(), x.lits[j].Not())
			}
		}
		return x
	}
	// sequential counter: seen[i] holds when some value <= i is taken
	seen := make([]z.Lit, n-1)
	for i := range seen {
		seen[i] = s.Lit()
	}
	s.AddClause(x.lits[0].Not(), seen[0])
	for i := 1; i < n-1; i++ {
		s.AddClause(x.lits[i].Not(), seen[i])
		s.AddClause(seen[i-1].Not(), seen[i])
		s.AddClause(seen[i-1].Not(), x.lits[i].Not())
	}
	s.AddClause(seen[n-2].Not(), x.lits[n-1].Not())
	return x
}

// Size is the number of values.
func (x *Int) Size() int {
	return len(x.lits)
}

// Eq is the literal "x == v"; False when v is out of range.
func (x *Int) Eq(v int) z.Lit {
	if v < 0 || v >= len(x.lits) {
		return x.s.False()
	}
	return x.lits[v]
}

// Geq is the literal "x >= v".
func (x *Int) Geq(v int) z.Lit {
	if v <= 0 {
		return x.s.True()
	}
	if v >= len(x.lits) {
		return x.s.False()
	}
	if x.geq[v] == z.LitNull {
		x.geq[v] = x.s.Ors(x.lits[v:]...)
	}
	return x.geq[v]
}

// Exclude returns one assumption per value outside allowed, together
// restricting x to allowed. allowed must be sorted.
func (x *Int) Exclude(allowed []int) []z.Lit {
	result := make([]z.Lit, 0, len(x.lits))
	j := 0
	for v, m := range x.lits {
		for j < len(allowed) && allowed[j] < v {
			j++
		}
		if j < len(allowed) && allowed[j] == v {
			continue
		}
		result = append(result, m.Not())
	}
	return result
}

// Value reads x from the model of the last satisfiable check.
func (x *Int) Value() int {
	for v, m := range x.lits {
		if x.s.Value(m) {
			return v
		}
	}
	return -1
}
