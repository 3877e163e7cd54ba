// Package qlearning implements the tabular Q-Learning algorithm with an
// ε-greedy behaviour policy, for environments with discrete
// observations and discrete actions
package qlearning

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/rlgrid/gridsim/environment"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// QLearning implements the Q-Learning algorithm. Actions selected by
// this algorithm will always be enumerated as (0, 1, 2, ... N) where
// N is the maximum possible action.
type QLearning struct {
	*QLearner
	*EGreedy
	table *QTable
}

// New creates a new QLearning agent for env
func New(env environment.Environment, config Config,
	seed uint64) (*QLearning, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("qlearning: invalid config: %w", err)
	}

	actionSpec := env.ActionSpec()
	if actionSpec.Cardinality != environment.Discrete {
		return nil, fmt.Errorf("qlearning: cannot use non-discrete actions")
	}
	if actionSpec.LowerBound.Len() != 1 {
		return nil, fmt.Errorf("qlearning: actions must be 1-dimensional")
	}
	if actionSpec.LowerBound.AtVec(0) != 0.0 {
		return nil, fmt.Errorf("qlearning: actions must be enumerated " +
			"starting from 0")
	}
	obsSpec := env.ObservationSpec()
	if obsSpec.Cardinality != environment.Discrete {
		return nil, fmt.Errorf("qlearning: cannot use non-discrete " +
			"observations")
	}

	src := rand.NewSource(seed)
	var init distuv.Rander
	if config.RandomInit {
		init = distuv.Uniform{Min: 0, Max: 1, Src: src}
	}

	actions := int(actionSpec.UpperBound.AtVec(0)) + 1
	table, err := NewQTable(obsSpec.Intervals(), actions, init)
	if err != nil {
		return nil, fmt.Errorf("qlearning: %w", err)
	}

	learner := NewQLearner(table, config.LearningRate, config.Gamma)
	behaviour := NewEGreedy(table, config.Epsilon, config.EpsilonDecay,
		config.EpsilonMin, src)

	return &QLearning{learner, behaviour, table}, nil
}

// Table returns the action values learned by the agent
func (q *QLearning) Table() *QTable {
	return q.table
}

// saved is the gob encoded form of a QLearning agent
type saved struct {
	Table   tableData
	Epsilon float64
}

// Save saves the agent's action values and current ε to filename
func (q *QLearning) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create file: %w", err)
	}
	defer file.Close()

	enc := gob.NewEncoder(file)
	if err := enc.Encode(saved{q.table.data(), q.Epsilon()}); err != nil {
		return fmt.Errorf("save: could not encode agent: %w", err)
	}
	return nil
}

// Load loads action values and ε previously saved with Save. The
// saved table must have the same dimensions as the agent's table.
func (q *QLearning) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("load: could not open file: %w", err)
	}
	defer file.Close()

	var s saved
	if err := gob.NewDecoder(file).Decode(&s); err != nil {
		return fmt.Errorf("load: could not decode agent: %w", err)
	}

	table, err := fromData(s.Table)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	states, actions := q.table.Dims()
	if r, c := table.Dims(); r != states || c != actions {
		return fmt.Errorf("load: saved table is %dx%d, want %dx%d", r, c,
			states, actions)
	}

	q.table.values.Copy(table.values)
	q.SetEpsilon(s.Epsilon)
	return nil
}
