package smt

import "github.com/go-air/gini/z"

// Scope is a frame of assumptions on a Session. Scopes nest strictly:
// the most recently pushed open scope must be closed first. Close is
// idempotent so that
//
//	sc := s.Push()
//	defer sc.Close()
//
// remains correct when sc is also closed explicitly on some path.
type Scope struct {
	s      *Session
	lits   []z.Lit
	closed bool
}

// Push opens a new scope on top of the open ones.
func (s *Session) Push() *Scope {
	sc := &Scope{s: s}
	s.frames = append(s.frames, sc)
	return sc
}

// Assume adds literals that hold for every Check while sc is open.
func (sc *Scope) Assume(ms ...z.Lit) {
	if sc.closed {
		panic("smt: assume on a closed scope")
	}
	sc.lits = append(sc.lits, ms...)
}

// Len is the number of assumptions in the scope.
func (sc *Scope) Len() int {
	return len(sc.lits)
}

// Close pops the scope.
func (sc *Scope) Close() {
	if sc.closed {
		return
	}
	frames := sc.s.frames
	if len(frames) == 0 || frames[len(frames)-1] != sc {
		panic("smt: scopes closed out of order")
	}
	sc.s.frames = frames[:len(frames)-1]
	sc.closed = true
}
