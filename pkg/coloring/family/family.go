package family

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/hashstructure"
)

// Family restricts every hole of a decision tree to a subset of its
// option indices. A Family is immutable once constructed; the engine
// only borrows it for the duration of a single query.
type Family struct {
	options [][]int
}

// New returns a Family with the given per-hole options. The input is
// copied, sorted and de-duplicated.
func New(options [][]int) *Family {
	f := &Family{options: make([][]int, len(options))}
	for hole, opts := range options {
		sorted := append([]int(nil), opts...)
		sort.Ints(sorted)
		uniq := sorted[:0]
		for i, o := range sorted {
			if i > 0 && o == sorted[i-1] {
				continue
			}
			uniq = append(uniq, o)
		}
		f.options[hole] = uniq
	}
	return f
}

// Full returns the Family that allows every option of every hole, given
// the number of options of each hole.
func Full(numOptions []int) *Family {
	options := make([][]int, len(numOptions))
	for hole, n := range numOptions {
		options[hole] = make([]int, n)
		for o := range options[hole] {
			options[hole][o] = o
		}
	}
	return &Family{options: options}
}

// Assignment returns the singleton Family that fixes hole i to
// options[i].
func Assignment(options []int) *Family {
	f := &Family{options: make([][]int, len(options))}
	for hole, o := range options {
		f.options[hole] = []int{o}
	}
	return f
}

func (f *Family) NumHoles() int {
	return len(f.options)
}

// Options returns the allowed options of a hole in ascending order. The
// returned slice must not be modified.
func (f *Family) Options(hole int) []int {
	return f.options[hole]
}

func (f *Family) Size(hole int) int {
	return len(f.options[hole])
}

// Contains reports whether option is allowed for hole.
func (f *Family) Contains(hole, option int) bool {
	opts := f.options[hole]
	i := sort.SearchInts(opts, option)
	return i < len(opts) && opts[i] == option
}

// Min and Max return the smallest and largest allowed option of a hole.
// Both panic when the hole has no options.
func (f *Family) Min(hole int) int {
	return f.options[hole][0]
}

func (f *Family) Max(hole int) int {
	opts := f.options[hole]
	return opts[len(opts)-1]
}

// IsAssignment reports whether every hole is resolved to exactly one
// option.
func (f *Family) IsAssignment() bool {
	for _, opts := range f.options {
		if len(opts) != 1 {
			return false
		}
	}
	return true
}

// Restrict returns a copy of f in which hole is limited to options.
func (f *Family) Restrict(hole int, options []int) *Family {
	next := make([][]int, len(f.options))
	copy(next, f.options)
	next[hole] = options
	return New(next)
}

// Hash fingerprints the family. Equal families hash equally.
func (f *Family) Hash() (uint64, error) {
	return hashstructure.Hash(f.options, nil)
}

func (f *Family) String() string {
	s := make([]string, len(f.options))
	for hole, opts := range f.options {
		if len(opts) == 1 {
			s[hole] = fmt.Sprintf("%d=%d", hole, opts[0])
			continue
		}
		o := make([]string, len(opts))
		for i, opt := range opts {
			o[i] = fmt.Sprint(opt)
		}
		s[hole] = fmt.Sprintf("%d:{%s}", hole, strings.Join(o, ","))
	}
	return strings.Join(s, ", ")
}
