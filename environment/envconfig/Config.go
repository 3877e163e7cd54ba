// Package envconfig provides configuration structs for configuring
// environments with default parameters. Environment configurations in
// this package are JSON serializable.
package envconfig

import (
	"encoding/json"
	"fmt"
	"os"

	env "github.com/rlgrid/gridsim/environment"
	"github.com/rlgrid/gridsim/environment/bikeshare"
	"github.com/rlgrid/gridsim/environment/gridworld"
	"github.com/rlgrid/gridsim/environment/wrappers"
	ts "github.com/rlgrid/gridsim/timestep"
	"golang.org/x/exp/rand"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	MouseAndCheese EnvName = "MouseAndCheese"
	BikeShare      EnvName = "BikeShare"
)

// Config implements a specific configuration of a specific environment.
// Only the configuration of the named environment is used; if it is
// nil, the environment's default configuration is used.
type Config struct {
	Environment EnvName
	GridWorld   *gridworld.Config `json:",omitempty"`
	BikeShare   *bikeshare.Config `json:",omitempty"`

	// Differential wraps the environment in a wrappers.AverageReward
	// if non-nil
	Differential *Differential `json:",omitempty"`
}

// Differential configures the wrappers.AverageReward wrapper
type Differential struct {
	Init         float64
	LearningRate float64
}

// NewConfig returns a new environment Config with the default
// configuration of the named environment
func NewConfig(envName EnvName) (Config, error) {
	c := Config{Environment: envName}

	switch envName {
	case MouseAndCheese:
		g := gridworld.DefaultConfig()
		c.GridWorld = &g

	case BikeShare:
		b := bikeshare.DefaultConfig()
		c.BikeShare = &b

	default:
		return Config{}, fmt.Errorf("newConfig: no such environment %v",
			envName)
	}
	return c, nil
}

// Load loads a JSON Config from filename
func Load(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("load: could not read config: %w", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load: could not decode config: %w", err)
	}
	return c, nil
}

// Save saves the Config to filename as JSON
func (c Config) Save(filename string) error {
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return fmt.Errorf("save: could not encode config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("save: could not write config: %w", err)
	}
	return nil
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment. All randomness in the
// environment is seeded with seed.
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep, error) {
	src := rand.NewSource(seed)

	var (
		e    env.Environment
		step ts.TimeStep
		err  error
	)
	switch c.Environment {
	case MouseAndCheese:
		e, step, err = CreateMouseAndCheese(c.GridWorld, src)

	case BikeShare:
		e, step, err = CreateBikeShare(c.BikeShare, src)

	default:
		return nil, ts.TimeStep{}, fmt.Errorf("create: cannot create "+
			"environment %v, no such environment", c.Environment)
	}
	if err != nil || c.Differential == nil {
		return e, step, err
	}

	a, step, err := wrappers.NewAverageReward(e, c.Differential.Init,
		c.Differential.LearningRate)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}
	return a, step, nil
}

// CreateMouseAndCheese is a factory for creating the mouse-and-cheese
// GridWorld with uniformly random starting positions. A nil Config
// uses gridworld.DefaultConfig.
func CreateMouseAndCheese(c *gridworld.Config,
	src rand.Source) (env.Environment, ts.TimeStep, error) {
	config := gridworld.DefaultConfig()
	if c != nil {
		config = *c
	}

	g, step, err := gridworld.New(config, nil, nil, src)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("createMouseAndCheese: %w", err)
	}
	return g, step, nil
}

// CreateBikeShare is a factory for creating the BikeShare environment.
// A nil Config uses bikeshare.DefaultConfig.
func CreateBikeShare(c *bikeshare.Config,
	src rand.Source) (env.Environment, ts.TimeStep, error) {
	config := bikeshare.DefaultConfig()
	if c != nil {
		config = *c
	}

	b, step, err := bikeshare.New(config, src)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("createBikeShare: %w", err)
	}
	return b, step, nil
}
