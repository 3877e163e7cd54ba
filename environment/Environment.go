// Package environment outlines the interfaces and structs needed to
// implement concrete grid environments
package environment

import (
	"io"

	ts "github.com/rlgrid/gridsim/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when episodes should be ended. If an episode
// should be ended, End() modifies the argument TimeStep so that its
// StepType is timestep.Last and returns true.
type Ender interface {
	End(*ts.TimeStep) bool
}

// Environment implements a simulated environment which an agent
// interacts with through a reset/step contract.
//
// Step returns the next TimeStep, whether the episode has ended, and
// an error if the action could not be applied. CurrentTimeStep is a
// read-only view of the last TimeStep and may be called any number of
// times without changing the environment.
type Environment interface {
	Reset() (ts.TimeStep, error)
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)
	CurrentTimeStep() ts.TimeStep
	Render(w io.Writer) error

	ActionSpec() Spec
	ObservationSpec() Spec
	DiscountSpec() Spec
}

// DiscreteAction extracts a single discrete action from an action
// vector and validates it against the environment's action Spec.
// An *InvalidActionError is returned if the action vector is not
// 1-dimensional or the action lies outside the Spec bounds.
func DiscreteAction(action *mat.VecDense, s Spec) (int, error) {
	min := int(s.LowerBound.AtVec(0))
	max := int(s.UpperBound.AtVec(0))

	if action == nil || action.Len() != 1 {
		length := 0
		if action != nil {
			length = action.Len()
		}
		return 0, &InvalidActionError{Action: -1, Min: min, Max: max,
			Dims: length}
	}

	value := action.AtVec(0)
	a := int(value)
	if float64(a) != value || a < min || a > max {
		return 0, &InvalidActionError{Action: a, Min: min, Max: max, Dims: 1}
	}
	return a, nil
}
