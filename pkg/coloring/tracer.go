package coloring

import (
	"fmt"
	"io"
)

// SearchPosition is the state of a consistency check at the moment an
// unsat core was found.
type SearchPosition interface {
	// Choices lists the choices whose formulas had been asserted, in
	// exploration order.
	Choices() []int
	Core() []CorePair
	// Minimized reports whether Core has been shrunk.
	Minimized() bool
}

type Tracer interface {
	Trace(p SearchPosition)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ SearchPosition) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(p SearchPosition) {
	fmt.Fprintf(t.Writer, "---\nChoices:\n")
	for _, c := range p.Choices() {
		fmt.Fprintf(t.Writer, "- %d\n", c)
	}
	if p.Minimized() {
		fmt.Fprintf(t.Writer, "Minimized core:\n")
	} else {
		fmt.Fprintf(t.Writer, "Core:\n")
	}
	for _, pair := range p.Core() {
		fmt.Fprintf(t.Writer, "- %s\n", pair)
	}
}

type position struct {
	choices   []int
	core      []CorePair
	minimized bool
}

func (p position) Choices() []int {
	return p.choices
}

func (p position) Core() []CorePair {
	return p.core
}

func (p position) Minimized() bool {
	return p.minimized
}
