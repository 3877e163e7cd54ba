package qlearning

import (
	"fmt"

	ts "github.com/rlgrid/gridsim/timestep"
	"github.com/rlgrid/gridsim/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// EGreedy implements an ε-greedy policy over a QTable. Each time an
// action is selected in training mode, ε is first decayed
// multiplicatively, never falling below its minimum.
//
// In evaluation mode the policy is greedy and ε is left unchanged.
// Ties between greedy actions are broken uniformly at random.
type EGreedy struct {
	table *QTable

	epsilon    float64
	decay      float64
	minEpsilon float64

	rng     *rand.Rand
	explore distuv.Bernoulli
	eval    bool
}

// NewEGreedy returns a new EGreedy policy selecting actions using the
// action values in table
func NewEGreedy(table *QTable, epsilon, decay, minEpsilon float64,
	src rand.Source) *EGreedy {
	return &EGreedy{
		table:      table,
		epsilon:    epsilon,
		decay:      decay,
		minEpsilon: minEpsilon,
		rng:        rand.New(src),
		explore:    distuv.Bernoulli{P: epsilon, Src: src},
	}
}

// SelectAction selects an action in the state observed at t. It
// panics if the observation lies outside of the table.
func (e *EGreedy) SelectAction(t ts.TimeStep) *mat.VecDense {
	values, err := e.table.Values(t.Observation)
	if err != nil {
		panic(fmt.Sprintf("selectAction: %v", err))
	}

	var action int
	if !e.eval {
		e.epsilon = floatutils.Max(e.minEpsilon, e.epsilon*e.decay)
		e.explore.P = e.epsilon
	}

	if !e.eval && e.explore.Rand() == 1 {
		action = e.rng.Intn(len(values))
	} else {
		action = floatutils.ArgMax(values, e.rng)
	}
	return mat.NewVecDense(1, []float64{float64(action)})
}

// Epsilon returns the current probability of selecting a random action
// in training mode
func (e *EGreedy) Epsilon() float64 {
	return e.epsilon
}

// SetEpsilon sets the probability of selecting a random action
func (e *EGreedy) SetEpsilon(epsilon float64) {
	e.epsilon = floatutils.Clip(epsilon, 0, 1)
	e.explore.P = e.epsilon
}

// Eval sets the policy to greedy evaluation mode
func (e *EGreedy) Eval() { e.eval = true }

// Train sets the policy to ε-greedy training mode
func (e *EGreedy) Train() { e.eval = false }

// IsEval returns whether the policy is in evaluation mode
func (e *EGreedy) IsEval() bool { return e.eval }
