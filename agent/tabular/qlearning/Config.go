package qlearning

import (
	"fmt"

	"github.com/rlgrid/gridsim/agent"
	"github.com/rlgrid/gridsim/environment"
)

func init() {
	// Register Config type so that it can be typed using
	// agent.TypedConfig to help with serialization/deserialization.
	agent.Register(agent.EGreedyQLearningTabular, Config{})
}

// Config represents a configuration for the tabular QLearning agent
type Config struct {
	Epsilon      float64 // initial probability of a random action
	EpsilonDecay float64 // multiplicative decay applied before each action
	EpsilonMin   float64

	LearningRate float64
	Gamma        float64 // discount of the update target

	// RandomInit samples initial action values uniformly from [0, 1)
	// instead of initializing them to zero
	RandomInit bool
}

// DefaultConfig returns the default QLearning configuration
func DefaultConfig() Config {
	return Config{
		Epsilon:      1.0,
		EpsilonDecay: 0.995,
		EpsilonMin:   0.1,
		LearningRate: 0.5,
		Gamma:        0.5,
		RandomInit:   true,
	}
}

// CreateAgent creates the agent from the Config
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	return New(env, c, seed)
}

// ValidAgent returns whether the argument agent is a valid agent for
// construction with the Config
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*QLearning)
	return ok
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon %v ∉ [0, 1]", c.Epsilon)
	}
	if c.EpsilonMin < 0 || c.EpsilonMin > 1 {
		return fmt.Errorf("minimum epsilon %v ∉ [0, 1]", c.EpsilonMin)
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		return fmt.Errorf("epsilon decay %v ∉ (0, 1]", c.EpsilonDecay)
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning rate %v ∉ (0, 1]", c.LearningRate)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma %v ∉ [0, 1]", c.Gamma)
	}
	return nil
}

// Type returns the type of the agent constructed by the Config
func (c Config) Type() agent.Type {
	return agent.EGreedyQLearningTabular
}
