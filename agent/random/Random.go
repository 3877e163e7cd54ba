// Package random implements agents which do not learn: a uniform
// random policy and a policy which always selects the same action
package random

import (
	"fmt"

	"github.com/rlgrid/gridsim/agent"
	"github.com/rlgrid/gridsim/environment"
	ts "github.com/rlgrid/gridsim/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func init() {
	agent.Register(agent.Random, Config{})
}

// Random selects discrete actions uniformly at random and never learns
type Random struct {
	dist   distuv.Categorical
	fixed  int // -1 if actions are random
	isEval bool
}

// New returns a Random agent selecting uniformly from
// {0, 1, ..., actions-1}
func New(actions int, src rand.Source) (*Random, error) {
	if actions <= 0 {
		return nil, fmt.Errorf("new: need at least one action, have %d",
			actions)
	}

	weights := make([]float64, actions)
	for i := range weights {
		weights[i] = 1.0
	}
	return &Random{dist: distuv.NewCategorical(weights, src), fixed: -1}, nil
}

// NewFixed returns an agent which always selects action
func NewFixed(action int) *Random {
	return &Random{fixed: action}
}

// SelectAction selects an action
func (r *Random) SelectAction(ts.TimeStep) *mat.VecDense {
	action := float64(r.fixed)
	if r.fixed < 0 {
		action = r.dist.Rand()
	}
	return mat.NewVecDense(1, []float64{action})
}

func (r *Random) Eval()        { r.isEval = true }
func (r *Random) Train()       { r.isEval = false }
func (r *Random) IsEval() bool { return r.isEval }

func (r *Random) Step() error                           { return nil }
func (r *Random) Observe(mat.Vector, ts.TimeStep) error { return nil }
func (r *Random) ObserveFirst(ts.TimeStep) error        { return nil }
func (r *Random) EndEpisode()                           {}

// Config configures a Random agent. If Fixed is non-nil, the agent
// always selects action *Fixed.
type Config struct {
	Fixed *int `json:",omitempty"`
}

// CreateAgent creates the agent from the Config
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	spec := env.ActionSpec()
	if spec.Cardinality != environment.Discrete || spec.Shape.Len() != 1 {
		return nil, fmt.Errorf("createAgent: random agents need " +
			"1-dimensional discrete actions")
	}
	actions := int(spec.UpperBound.AtVec(0)) + 1

	if c.Fixed != nil {
		if *c.Fixed < 0 || *c.Fixed >= actions {
			return nil, fmt.Errorf("createAgent: fixed action %d ∉ [0, %d)",
				*c.Fixed, actions)
		}
		return NewFixed(*c.Fixed), nil
	}
	return New(actions, rand.NewSource(seed))
}

// ValidAgent returns whether the argument agent is a valid agent for
// construction with the Config
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*Random)
	return ok
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.Fixed != nil && *c.Fixed < 0 {
		return fmt.Errorf("fixed action cannot be negative, have %d", *c.Fixed)
	}
	return nil
}

// Type returns the type of the agent constructed by the Config
func (c Config) Type() agent.Type {
	return agent.Random
}
