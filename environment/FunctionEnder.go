package environment

import (
	ts "github.com/rlgrid/gridsim/timestep"
	"gonum.org/v1/gonum/mat"
)

// FunctionEnder ends an episode whenever a function of a vector
// (usually the underlying environment state) returns true.
type FunctionEnder struct {
	end     func(*mat.VecDense) bool
	endType ts.EndType
}

// NewFunctionEnder returns a new FunctionEnder which ends episodes with
// end type endType when f returns true.
func NewFunctionEnder(f func(*mat.VecDense) bool, endType ts.EndType) *FunctionEnder {
	return &FunctionEnder{f, endType}
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode termination. If the episode
// should be ended, End() will modify the timestep so that its StepType
// field is timestep.Last and its EndType is the appropriate ending
// type.
func (f *FunctionEnder) End(t *ts.TimeStep) bool {
	if f.end(t.Observation) {
		t.StepType = ts.Last
		t.SetEnd(f.endType)
		return true
	}
	return false
}

// Enders combines several Enders, ending the episode as soon as any of
// them does. Earlier Enders take precedence in setting the EndType.
type Enders []Ender

// End calls End on each Ender in order until one ends the episode
func (e Enders) End(t *ts.TimeStep) bool {
	for _, ender := range e {
		if ender.End(t) {
			return true
		}
	}
	return false
}
