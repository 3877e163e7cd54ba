package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/rlgrid/gridsim/agent"
	env "github.com/rlgrid/gridsim/environment"
	"github.com/rlgrid/gridsim/experiment/checkpointer"
	"github.com/rlgrid/gridsim/experiment/tracker"
	ts "github.com/rlgrid/gridsim/timestep"
)

// Online is an Experiment that runs an agent online only. No offline
// evaluation is performed.
type Online struct {
	env   env.Environment
	agent agent.Agent

	maxSteps     uint
	currentSteps uint
	episodes     int

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer

	logger     *log.Logger
	continuing bool
	started    bool
}

// Option configures an Online experiment
type Option func(*Online)

// WithLogger logs the progress of the experiment to l
func WithLogger(l *log.Logger) Option {
	return func(o *Online) {
		o.logger = l
	}
}

// Continuing resets the environment only before the first episode.
// Each later episode starts from the state the previous one ended in.
func Continuing() Option {
	return func(o *Online) {
		o.continuing = true
	}
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The steps parameter determines how
// many timesteps the experiment is run for, the t parameter is a slice
// of tracker.Tracker which determine what data is saved, and the c
// parameter is a slice of checkpointer.Checkpointer which determine
// when the agent is saved.
func NewOnline(e env.Environment, a agent.Agent, steps uint,
	t []tracker.Tracker, c []checkpointer.Checkpointer,
	opts ...Option) *Online {
	o := &Online{
		env:           e,
		agent:         a,
		maxSteps:      steps,
		trackers:      t,
		checkpointers: c,
		logger:        log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Environment returns the environment the experiment is run on
func (o *Online) Environment() env.Environment {
	return o.env
}

// Agent returns the agent being run
func (o *Online) Agent() agent.Agent {
	return o.agent
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// Episodes returns the number of completed episodes
func (o *Online) Episodes() int {
	return o.episodes
}

// Steps returns the number of environment steps taken so far
func (o *Online) Steps() uint {
	return o.currentSteps
}

// first returns the first TimeStep of a new episode
func (o *Online) first() (ts.TimeStep, error) {
	if !o.continuing || !o.started {
		o.started = true
		return o.env.Reset()
	}

	step := o.env.CurrentTimeStep()
	step.StepType = ts.First
	step.Number = 0
	step.SetEnd(ts.NotEnded)
	return step, nil
}

// RunEpisode runs a single episode of the experiment and returns
// whether the step limit of the experiment has been reached
func (o *Online) RunEpisode() (bool, error) {
	step, err := o.first()
	if err != nil {
		return true, fmt.Errorf("runEpisode: could not reset: %w", err)
	}
	if err := o.agent.ObserveFirst(step); err != nil {
		return true, fmt.Errorf("runEpisode: %w", err)
	}
	o.track(step)

	var episodeReturn float64
	for !step.Last() && o.currentSteps < o.maxSteps {
		o.currentSteps++

		action := o.agent.SelectAction(step)
		step, _, err = o.env.Step(action)
		if err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}
		episodeReturn += step.Reward

		o.track(step)

		if err := o.agent.Observe(action, step); err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}
		if err := o.agent.Step(); err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}
		if err := o.checkpoint(step); err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}
	}

	if step.Last() {
		o.agent.EndEpisode()
		o.episodes++
		o.logger.Debug("episode complete", "episode", o.episodes,
			"steps", step.Number, "return", episodeReturn,
			"end", step.EndType())
	}

	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment for all timesteps, stopping early if
// ctx is cancelled between episodes
func (o *Online) Run(ctx context.Context) error {
	o.logger.Info("starting experiment", "steps", o.maxSteps)

	for ended := false; !ended; {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run: %w", err)
		}

		var err error
		if ended, err = o.RunEpisode(); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	o.logger.Info("experiment complete", "episodes", o.episodes,
		"steps", o.currentSteps)
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	var errs []error
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// track tracks the current timestep by caching its data in each tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
}

// checkpoint passes the current timestep to each checkpointer
func (o *Online) checkpoint(t ts.TimeStep) error {
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(t); err != nil {
			return err
		}
	}
	return nil
}
