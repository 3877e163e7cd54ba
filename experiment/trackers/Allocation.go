package trackers

import (
	"github.com/rlgrid/gridsim/environment/bikeshare"
	ts "github.com/rlgrid/gridsim/timestep"
)

// Allocator is an environment which reports bike-share allocation
// metrics
type Allocator interface {
	Metrics() bikeshare.Metrics
}

// Allocation tracks the unservice ratio and cumulative expense of each
// episode of a bike-share experiment. The metrics of an episode are
// read from the environment when the Last TimeStep of the episode is
// tracked, so Allocation works whether or not the environment is reset
// between episodes.
type Allocation struct {
	env      Allocator
	metrics  bikeshare.Metrics
	filename string
}

// NewAllocation returns a new Allocation tracker reading metrics from
// env and saving them at filename
func NewAllocation(env Allocator, filename string) *Allocation {
	return &Allocation{env: env, filename: filename}
}

// Track records the metrics of an episode once it has finished
func (a *Allocation) Track(t ts.TimeStep) {
	if !t.Last() {
		return
	}

	m := a.env.Metrics()
	if n := len(m.UnserviceRatios); n > 0 {
		a.metrics.UnserviceRatios = append(a.metrics.UnserviceRatios,
			m.UnserviceRatios[n-1])
		a.metrics.Expenses = append(a.metrics.Expenses, m.Expenses[n-1])
		a.metrics.Expense = m.Expense
	}
}

// Metrics returns the metrics of all tracked episodes
func (a *Allocation) Metrics() bikeshare.Metrics {
	return a.metrics.Copy()
}

// Save saves the tracked metrics to disk. They can be loaded with
// bikeshare.LoadMetrics.
func (a *Allocation) Save() error {
	return a.metrics.Save(a.filename)
}
