// Package experiment implements functionality for running an experiment
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rlgrid/gridsim/agent"
	"github.com/rlgrid/gridsim/environment/envconfig"
	"github.com/rlgrid/gridsim/experiment/checkpointer"
	"github.com/rlgrid/gridsim/experiment/tracker"
	"golang.org/x/sync/errgroup"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments send each environment TimeStep to their Trackers, which
// cache the data they need in RAM to be later saved to disk. The Run()
// method will run all episodes until the maximum timestep limit is
// reached or the context is cancelled. The RunEpisode() function will
// run a single episode.
type Experiment interface {
	Run(ctx context.Context) error

	// RunEpisode returns whether the step limit has been reached
	RunEpisode() (bool, error)

	// Save all tracked data to disk
	Save() error

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment. Useful if you want to track data only after a
	// specified event.
	Register(t tracker.Tracker)
}

type Type string

const (
	OnlineExp Type = "OnlineExperiment"
)

// Config represents a configuration of an experiment. Configs are
// JSON serializable.
type Config struct {
	Type
	MaxSteps  uint
	EnvConf   envconfig.Config
	AgentConf agent.TypedConfig

	// Continuing experiments reset the environment only once, letting
	// it carry its state from one episode into the next
	Continuing bool
}

// LoadConfig loads a JSON Config from filename
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: %w", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("loadConfig: could not decode: %w", err)
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
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// CreateExp creates the experiment described by the Config. The
// environment and agent are both seeded with seed.
func (c Config) CreateExp(seed uint64, t []tracker.Tracker,
	check []checkpointer.Checkpointer, opts ...Option) (*Online, error) {
	env, _, err := c.EnvConf.Create(seed)
	if err != nil {
		return nil, fmt.Errorf("createExp: could not create environment: %w",
			err)
	}

	if c.AgentConf.Config == nil {
		return nil, fmt.Errorf("createExp: no agent configured")
	}
	if err := c.AgentConf.Config.Validate(); err != nil {
		return nil, fmt.Errorf("createExp: invalid agent config: %w", err)
	}
	agent, err := c.AgentConf.Config.CreateAgent(env, seed)
	if err != nil {
		return nil, fmt.Errorf("createExp: could not create agent: %w", err)
	}

	if c.Continuing {
		opts = append(opts, Continuing())
	}

	switch c.Type {
	case OnlineExp:
		return NewOnline(env, agent, c.MaxSteps, t, check, opts...), nil
	}

	return nil, fmt.Errorf("createExp: no such experiment type %v", c.Type)
}

// RunParallel calls run for each of the runs independent experiments
// i = 0, 1, ..., runs-1, running at most limit at once. A limit of
// zero or less runs all experiments at once. The first error returned
// by any run cancels the context passed to the others and is returned.
func RunParallel(ctx context.Context, runs, limit int,
	run func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := 0; i < runs; i++ {
		i := i
		g.Go(func() error {
			if err := run(ctx, i); err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}
