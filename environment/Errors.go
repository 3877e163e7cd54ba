package environment

import "fmt"

// OutOfBoundsError is returned under a strict boundary policy when a
// token is forced onto a cell outside of the grid
type OutOfBoundsError struct {
	X, Y          int
	Width, Length int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("%d,%d is out of bounds for map %dx%d", e.X, e.Y,
		e.Width, e.Length)
}

// InvalidActionError is returned when an action lies outside of the
// declared discrete action range
type InvalidActionError struct {
	Action   int
	Min, Max int
	Dims     int
}

func (e *InvalidActionError) Error() string {
	if e.Dims != 1 {
		return fmt.Sprintf("illegal action: actions must be 1-dimensional, "+
			"have %d dimensions", e.Dims)
	}
	return fmt.Sprintf("illegal action %d ∉ [%d, %d]", e.Action, e.Min,
		e.Max)
}
