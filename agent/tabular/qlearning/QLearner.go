package qlearning

import (
	"errors"
	"fmt"

	ts "github.com/rlgrid/gridsim/timestep"
	"gonum.org/v1/gonum/mat"
)

// QLearner implements the update functionality for the tabular
// Q-Learning algorithm
type QLearner struct {
	table        *QTable
	learningRate float64
	gamma        float64

	step     ts.TimeStep
	action   int
	nextStep ts.TimeStep
	ready    bool // whether a full transition has been observed
}

// NewQLearner creates a new QLearner which updates the action values
// in table
func NewQLearner(table *QTable, learningRate, gamma float64) *QLearner {
	return &QLearner{table: table, learningRate: learningRate, gamma: gamma}
}

// ObserveFirst observes and records the first episodic timestep
func (q *QLearner) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observeFirst: timestep %d is not the first "+
			"timestep of an episode", t.Number)
	}
	q.step = ts.TimeStep{}
	q.nextStep = t
	q.ready = false
	return nil
}

// Observe observes and records any timestep other than the first
// timestep
func (q *QLearner) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if action.Len() != 1 {
		return fmt.Errorf("observe: value-based methods cannot have "+
			"multi-dimensional actions (action dim = %d)", action.Len())
	}
	q.step = q.nextStep
	q.action = int(action.AtVec(0))
	q.nextStep = nextStep
	q.ready = true
	return nil
}

// Step updates the action value of the last observed transition
// towards R + γ max_a Q(S', a). Terminal transitions do not
// bootstrap.
func (q *QLearner) Step() error {
	if !q.ready {
		return errors.New("step: no transition observed")
	}
	t := ts.NewTransition(q.step, q.action, q.nextStep)

	target := t.Reward
	if t.Discount != 0 {
		max, err := q.table.Max(t.NextState)
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		target += q.gamma * t.Discount * max
	}

	if err := q.table.Update(t.State, t.Action, target,
		q.learningRate); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (q *QLearner) EndEpisode() {
	q.ready = false
}
