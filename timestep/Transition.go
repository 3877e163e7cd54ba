package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition packages together the SARSA-style tuple
// (S_t, A_t, R_{t+1}, γ, S_{t+1}) that learners update on
type Transition struct {
	State     *mat.VecDense
	Action    int
	Reward    float64
	Discount  float64
	NextState *mat.VecDense
	Terminal  bool
}

// NewTransition builds a Transition from the step an action was taken
// on and the step that action led to
func NewTransition(step TimeStep, action int, next TimeStep) Transition {
	discount := next.Discount
	if next.Last() && next.EndType() == TerminalStateReached {
		discount = 0
	}

	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    next.Reward,
		Discount:  discount,
		NextState: next.Observation,
		Terminal:  next.Last(),
	}
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %d  |  Reward: %.2f  |  "+
		"Discount: %.2f  |  Terminal: %v", t.Action, t.Reward, t.Discount,
		t.Terminal)
}
