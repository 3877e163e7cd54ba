// Package bikeshare implements a bike-share allocation gridworld. Each
// cell of the grid is a station holding some supply of bikes. Every
// step a random request to ride between two stations arrives, and the
// operator may redirect the start of the request to a neighbouring
// station, paying the incentive cost of that station whenever the
// redirected request is served. Rides are credited to their destination
// only once the episode ends.
package bikeshare

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	env "github.com/rlgrid/gridsim/environment"
	"github.com/rlgrid/gridsim/environment/render"
	ts "github.com/rlgrid/gridsim/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat"
)

// Sentinel marks neighbours outside of the grid in NextMoveVector
const Sentinel float64 = -1.0

// BikeShare implements the bike-share allocation environment.
//
// Observations are the supply of each station in row-major order.
// Actions are redirect directions in {Down, Up, Right, Left}. The
// reward of a step is the decrease in the mean absolute deviation of
// station supply from Config.TargetSupply. The deviation before the
// first step after Reset is taken to be 0, so that first reward is the
// negated deviation. Each served request that was redirected costs the
// operator CostMatrix()[action] at its original start station, which
// accumulates in Metrics().Expense. Episodes end after
// Config.ActionsPerEpisode steps, at which point pending arrivals are
// committed to the supply grid. The environment keeps its supply and
// metrics across episodes until Reset is called.
//
// BikeShare implements the environment.Environment interface.
type BikeShare struct {
	config Config
	rng    *rand.Rand
	src    rand.Source
	ender  *env.StepLimit

	supply    *mat.Dense
	pending   *mat.Dense
	costs     [Actions]*mat.Dense
	interests *env.CategoricalStarter
	interest  Interest

	remaining int
	prevError float64
	metrics   Metrics

	currentStep ts.TimeStep
}

// New creates a new BikeShare environment and resets it. All
// randomness is drawn from src.
func New(c Config, src rand.Source) (*BikeShare, ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: invalid config: %w", err)
	}
	if src == nil {
		return nil, ts.TimeStep{}, errors.New("new: nil random source")
	}

	b := &BikeShare{
		config: c,
		rng:    rand.New(src),
		src:    src,
	}
	step, err := b.Reset()
	return b, step, err
}

// Reset reinitializes the environment: station supply is reseeded,
// pending arrivals and metrics are zeroed, and a new cost matrix and
// interest are drawn
func (b *BikeShare) Reset() (ts.TimeStep, error) {
	l, w := b.config.Length, b.config.Width

	b.supply = mat.NewDense(l, w, nil)
	for i := 0; i < l; i++ {
		supply := b.config.HighSupply
		if i < l/2 {
			supply = b.config.LowSupply
		}
		for j := 0; j < w; j++ {
			b.supply.Set(i, j, float64(supply))
		}
	}
	b.pending = mat.NewDense(l, w, nil)

	for d := range b.costs {
		b.costs[d] = mat.NewDense(l, w, nil)
		for i := 0; i < l; i++ {
			for j := 0; j < w; j++ {
				cost := b.rng.Intn(b.config.MaxRelocationCost)
				b.costs[d].Set(i, j, float64(cost))
			}
		}
	}

	b.interests = env.NewCategoricalStarter([]int{l, w, l, w}, b.src)
	b.nextInterest()

	b.ender = env.NewStepLimit(b.config.ActionsPerEpisode)
	b.remaining = b.config.ActionsPerEpisode
	b.metrics = Metrics{}
	b.prevError = 0

	b.currentStep = ts.New(ts.First, 0, b.config.Discount, b.observation(),
		0)
	return b.currentStep.Copy(), nil
}

// Reconfigure changes the dimensions and action budget of the
// environment and resets it
func (b *BikeShare) Reconfigure(length, width,
	actionsPerEpisode int) (ts.TimeStep, error) {
	c := b.config
	c.Length, c.Width, c.ActionsPerEpisode = length, width, actionsPerEpisode
	if err := c.Validate(); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reconfigure: %w", err)
	}

	b.config = c
	return b.Reset()
}

// Step handles the pending request, redirecting its start station one
// cell in the direction given by action if that station lies on the
// grid. If the start station has a bike, the bike departs immediately
// and is credited to the destination at the end of the episode.
// Otherwise the request goes unserviced.
//
// Step returns the next TimeStep and whether the action budget of the
// episode has been exhausted. Actions outside {Down, Up, Right, Left}
// result in an *environment.InvalidActionError and no change to the
// environment.
func (b *BikeShare) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	dir, err := env.DiscreteAction(action, b.ActionSpec())
	if err != nil {
		return ts.TimeStep{}, false, fmt.Errorf("step: %w", err)
	}

	interest := b.interest
	l, w := interest.StartL, interest.StartW
	redirectL, redirectW := offset(l, w, dir)
	redirected := b.inBounds(redirectL, redirectW)
	if redirected {
		l, w = redirectL, redirectW
	}

	if b.possible(l, w) {
		b.supply.Set(l, w, b.supply.At(l, w)-1)
		b.pending.Set(interest.DestL, interest.DestW,
			b.pending.At(interest.DestL, interest.DestW)+1)

		if redirected {
			b.metrics.Expense += b.costs[dir].At(interest.StartL,
				interest.StartW)
		}
	} else {
		b.metrics.Unserviced++
	}

	currentError := b.supplyError()
	reward := b.prevError - currentError
	b.prevError = currentError

	b.nextInterest()

	b.remaining--
	step := ts.New(ts.Mid, reward, b.config.Discount, nil,
		b.ender.Limit()-b.remaining)
	done := b.ender.End(&step)
	if done {
		b.ResetEpisode()
	}
	step.Observation = b.observation()

	b.currentStep = step
	return step.Copy(), done, nil
}

// ResetEpisode commits pending arrivals to the supply grid, restores
// the action budget and records the unservice ratio and expense of the
// episode. Step calls ResetEpisode once the action budget is
// exhausted.
func (b *BikeShare) ResetEpisode() {
	b.remaining = b.ender.Limit()

	b.supply.Add(b.supply, b.pending)
	b.pending.Zero()

	ratio := float64(b.metrics.Unserviced) / float64(b.ender.Limit())
	b.metrics.UnserviceRatios = append(b.metrics.UnserviceRatios, ratio)
	b.metrics.Expenses = append(b.metrics.Expenses, b.metrics.Expense)

	b.metrics.Unserviced = 0
}

// possible returns whether station (l, w) has a bike to give up
func (b *BikeShare) possible(l, w int) bool {
	return b.supply.At(l, w) > 0
}

func (b *BikeShare) inBounds(l, w int) bool {
	return l >= 0 && l < b.config.Length && w >= 0 && w < b.config.Width
}

func (b *BikeShare) nextInterest() {
	v := b.interests.Start()
	b.interest = Interest{
		StartL: int(v.AtVec(0)),
		StartW: int(v.AtVec(1)),
		DestL:  int(v.AtVec(2)),
		DestW:  int(v.AtVec(3)),
	}
}

// supplyError returns the mean absolute deviation of station supply
// from the target supply
func (b *BikeShare) supplyError() float64 {
	l, w := b.supply.Dims()
	deviations := make([]float64, 0, l*w)
	for i := 0; i < l; i++ {
		deviations = append(deviations, b.supply.RawRowView(i)...)
	}

	floats.AddConst(-b.config.TargetSupply, deviations)
	for i := range deviations {
		deviations[i] = math.Abs(deviations[i])
	}
	return stat.Mean(deviations, nil)
}

func (b *BikeShare) observation() *mat.VecDense {
	l, w := b.supply.Dims()
	obs := mat.NewVecDense(l*w, nil)
	for i := 0; i < l; i++ {
		for j := 0; j < w; j++ {
			obs.SetVec(i*w+j, b.supply.At(i, j))
		}
	}
	return obs
}

// SubState returns the supply of station (l, w)
func (b *BikeShare) SubState(l, w int) (float64, error) {
	if !b.inBounds(l, w) {
		return 0, fmt.Errorf("subState: %w", b.outOfBounds(l, w))
	}
	return b.supply.At(l, w), nil
}

// SubRegion returns the supply of station (l, w) followed by the supply
// of its neighbours above, below, left and right of it. Neighbours off
// the grid are omitted.
func (b *BikeShare) SubRegion(l, w int) ([]float64, error) {
	if !b.inBounds(l, w) {
		return nil, fmt.Errorf("subRegion: %w", b.outOfBounds(l, w))
	}

	region := []float64{b.supply.At(l, w)}
	for _, n := range neighbours(l, w) {
		if b.inBounds(n[0], n[1]) {
			region = append(region, b.supply.At(n[0], n[1]))
		}
	}
	return region, nil
}

// NextMoveVector returns the supply at the start station of the
// pending request followed by the supply of its neighbours above,
// below, left and right of it. Neighbours off the grid are reported as
// Sentinel.
func (b *BikeShare) NextMoveVector() *mat.VecDense {
	l, w := b.interest.StartL, b.interest.StartW

	vec := mat.NewVecDense(5, nil)
	vec.SetVec(0, b.supply.At(l, w))
	for i, n := range neighbours(l, w) {
		value := Sentinel
		if b.inBounds(n[0], n[1]) {
			value = b.supply.At(n[0], n[1])
		}
		vec.SetVec(i+1, value)
	}
	return vec
}

// neighbours returns the stations above, below, left and right of
// (l, w)
func neighbours(l, w int) [4][2]int {
	return [4][2]int{{l - 1, w}, {l + 1, w}, {l, w - 1}, {l, w + 1}}
}

func (b *BikeShare) outOfBounds(l, w int) error {
	return &env.OutOfBoundsError{X: w, Y: l, Width: b.config.Width,
		Length: b.config.Length}
}

// CurrentTimeStep returns a copy of the current TimeStep
func (b *BikeShare) CurrentTimeStep() ts.TimeStep {
	return b.currentStep.Copy()
}

// State returns the current observation without changing the
// environment
func (b *BikeShare) State() *mat.VecDense {
	return b.observation()
}

// Interest returns the pending request
func (b *BikeShare) Interest() Interest {
	return b.interest
}

// Supply returns a copy of the supply grid
func (b *BikeShare) Supply() *mat.Dense {
	return mat.DenseCopyOf(b.supply)
}

// Pending returns a copy of the pending arrivals grid
func (b *BikeShare) Pending() *mat.Dense {
	return mat.DenseCopyOf(b.pending)
}

// CostMatrix returns a copy of the relocation costs, indexed by
// direction
func (b *BikeShare) CostMatrix() [Actions]*mat.Dense {
	var costs [Actions]*mat.Dense
	for d := range costs {
		costs[d] = mat.DenseCopyOf(b.costs[d])
	}
	return costs
}

// Metrics returns a copy of the accumulated metrics
func (b *BikeShare) Metrics() Metrics {
	return b.metrics.Copy()
}

// UnserviceRatios returns the unservice ratio of each completed episode
func (b *BikeShare) UnserviceRatios() []float64 {
	return b.Metrics().UnserviceRatios
}

// Expenses returns the cumulative expense at the end of each completed
// episode
func (b *BikeShare) Expenses() []float64 {
	return b.Metrics().Expenses
}

// RemainingActions returns the number of steps left in the episode
func (b *BikeShare) RemainingActions() int {
	return b.remaining
}

// Dims gets the length (rows) and width (columns) of the station grid
func (b *BikeShare) Dims() (length, width int) {
	return b.config.Length, b.config.Width
}

// Config returns the configuration of the environment
func (b *BikeShare) Config() Config {
	return b.config
}

// ActionSpec returns the action specification of the environment
func (b *BikeShare) ActionSpec() env.Spec {
	return env.NewIntervalSpec(env.Action, []r1.Interval{
		{Min: 0, Max: Actions - 1},
	}, env.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment. Supply is conserved, so no station can ever hold more
// than the total number of bikes.
func (b *BikeShare) ObservationSpec() env.Spec {
	bounds := make([]r1.Interval, b.config.Length*b.config.Width)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: 0, Max: float64(b.config.TotalSupply())}
	}
	return env.NewIntervalSpec(env.Observation, bounds, env.Discrete)
}

// DiscountSpec returns the discounting specification of the environment
func (b *BikeShare) DiscountSpec() env.Spec {
	return env.NewDiscountSpec(b.config.Discount)
}

// Render writes the supply grid to w, one tab-separated row per line
func (b *BikeShare) Render(w io.Writer) error {
	var sb strings.Builder
	rows, cols := b.supply.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			fmt.Fprintf(&sb, "%v\t", b.supply.At(i, j))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// RenderImage saves a heat map of the supply grid as a PNG at filename,
// with each station cellSize pixels wide
func (b *BikeShare) RenderImage(filename string, cellSize int) error {
	return render.SavePNG(supplyImage{b}, cellSize, filename)
}

func (b *BikeShare) String() string {
	return fmt.Sprintf("BikeShare | %dx%d | Remaining: %d | Interest: %v",
		b.config.Length, b.config.Width, b.remaining, b.interest)
}

// supplyImage adapts a BikeShare to render.Grid, shading each station
// by its supply relative to twice the target supply
type supplyImage struct {
	b *BikeShare
}

func (i supplyImage) Dims() (int, int) {
	return i.b.supply.Dims()
}

func (i supplyImage) CellColor(r, c int) color.Color {
	return render.Heat(i.b.supply.At(r, c) / (2 * i.b.config.TargetSupply))
}

func (i supplyImage) Label(r, c int) string {
	return fmt.Sprintf("%v", i.b.supply.At(r, c))
}
