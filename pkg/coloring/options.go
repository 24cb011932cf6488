package coloring

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Option func(e *Engine) error

// WithLogger sets the logger used for per-query diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) error {
		e.log = log
		return nil
	}
}

// WithTracer sets the tracer invoked whenever an unsat core is found.
func WithTracer(t Tracer) Option {
	return func(e *Engine) error {
		e.tracer = t
		return nil
	}
}

// WithNumActions fixes the number of options of every action hole. By
// default it is one more than the largest action label of the model.
func WithNumActions(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return errors.Errorf("number of actions must be positive, got %d", n)
		}
		e.numActions = n
		return nil
	}
}

// WithSingleConsistencyCheck skips the harmonizing formulas. Inconsistent
// results then carry an unsat core but no hole assignment.
func WithSingleConsistencyCheck(enabled bool) Option {
	return func(e *Engine) error {
		e.singleCheck = enabled
		return nil
	}
}

// WithFamilyCheck makes choice selection verify that the family itself is
// satisfiable before exploring the model.
func WithFamilyCheck(enabled bool) Option {
	return func(e *Engine) error {
		e.familyCheck = enabled
		return nil
	}
}

// WithSchedulerCheck makes choice selection verify that a consistent
// scheduler over the selected choices exists, clearing the selection
// otherwise.
func WithSchedulerCheck(enabled bool) Option {
	return func(e *Engine) error {
		e.schedulerCheck = enabled
		return nil
	}
}

// WithCoreMinimization toggles deletion-based shrinking of unsat cores.
func WithCoreMinimization(enabled bool) Option {
	return func(e *Engine) error {
		e.minimizeCore = enabled
		return nil
	}
}

var defaults = []Option{
	func(e *Engine) error {
		if e.log == nil {
			log := logrus.New()
			log.SetOutput(io.Discard)
			e.log = log
		}
		return nil
	},
	func(e *Engine) error {
		if e.tracer == nil {
			e.tracer = DefaultTracer{}
		}
		return nil
	},
	func(e *Engine) error {
		if e.numActions == 0 {
			for _, a := range e.actions {
				if a+1 > e.numActions {
					e.numActions = a + 1
				}
			}
		}
		return nil
	},
}
