// Package gridworld implements the mouse-and-cheese gridworld, in
// which an agent (the mouse) moves around a 2D grid to reach a goal
// (the cheese)
package gridworld

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"

	env "github.com/rlgrid/gridsim/environment"
	"github.com/rlgrid/gridsim/environment/render"
	ts "github.com/rlgrid/gridsim/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// ErrCoincident is returned when an episode would start with the agent
// on the goal
var ErrCoincident = errors.New("agent and goal start on the same cell")

// Actions
const (
	Up int = iota
	Down
	Left
	Right
)

// Actions is the number of actions in a GridWorld
const Actions = 4

// GridWorld is a length x width grid with an agent token and a goal
// token. The agent moves one cell per step in one of four directions
// and the episode ends once it reaches the goal.
//
// Moves off the edge of the grid leave the agent in place (or end the
// episode if Config.EdgeTerminates is set). Forced placements through
// Place or ResetTo follow the Config's BoundaryPolicy.
//
// GridWorld implements the environment.Environment interface.
type GridWorld struct {
	config Config
	task   *Approach
	ender  env.Enders

	grid  []Cell // row-major, index y*width + x
	agent *Token
	goal  *Token

	agentStarter env.Starter
	goalStarter  env.Starter
	uniform      env.Starter

	hitEdge     bool // whether the last move tried to leave the grid
	currentStep ts.TimeStep
}

// New creates a new GridWorld and resets it. The agentStart and
// goalStart Starters sample (x, y) starting positions; if nil,
// positions are sampled uniformly over the grid. All randomness is
// drawn from src.
func New(c Config, agentStart, goalStart env.Starter,
	src rand.Source) (*GridWorld, ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: invalid config: %w", err)
	}
	if src == nil {
		return nil, ts.TimeStep{}, errors.New("new: nil random source")
	}

	uniform := env.NewCategoricalStarter([]int{c.Width, c.Length}, src)
	if agentStart == nil {
		agentStart = uniform
	}
	if goalStart == nil {
		goalStart = uniform
	}

	g := &GridWorld{
		config:       c,
		task:         NewApproach(),
		grid:         make([]Cell, c.Length*c.Width),
		agentStarter: agentStart,
		goalStarter:  goalStart,
		uniform:      uniform,
	}

	// Reaching the goal takes precedence over the other end conditions
	g.ender = env.Enders{env.NewFunctionEnder(g.atGoal,
		ts.TerminalStateReached)}
	if c.EdgeTerminates {
		g.ender = append(g.ender, env.NewFunctionEnder(g.offEdge,
			ts.TerminalStateReached))
	}
	if c.EpisodeCutoff > 0 {
		g.ender = append(g.ender, env.NewStepLimit(c.EpisodeCutoff))
	}

	step, err := g.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}
	return g, step, nil
}

// Reset resets the environment, sampling the agent and goal starting
// positions from their Starters
func (g *GridWorld) Reset() (ts.TimeStep, error) {
	agent := vToP(g.agentStarter.Start())
	goal := vToP(g.goalStarter.Start())

	// Only uniformly sampled positions are redrawn
	for goal == agent {
		if g.goalStarter == g.uniform {
			goal = vToP(g.uniform.Start())
		} else if g.agentStarter == g.uniform {
			agent = vToP(g.uniform.Start())
		} else {
			break
		}
	}

	return g.ResetTo(&agent, &goal)
}

// ResetTo resets the environment with the agent at agent and the goal
// at goal. A nil position is sampled uniformly over the grid.
//
// Under the Strict boundary policy an off-grid position results in an
// *environment.OutOfBoundsError and the environment is left unchanged.
// Under the Lenient policy the off-grid position is ignored and
// sampled uniformly instead.
//
// Episodes never start with the agent on the goal. Under the Strict
// policy two given positions which coincide result in ErrCoincident
// and the environment is left unchanged. Otherwise the goal is redrawn
// uniformly from the other cells.
func (g *GridWorld) ResetTo(agent, goal *Position) (ts.TimeStep, error) {
	agentPos, err := g.startPosition(agent)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not place agent: %w",
			err)
	}
	goalPos, err := g.startPosition(goal)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not place goal: %w",
			err)
	}
	if goalPos == agentPos {
		if g.config.Boundary == Strict && agent != nil && goal != nil {
			return ts.TimeStep{}, fmt.Errorf("reset: %w at %v", ErrCoincident,
				agentPos)
		}
		for goalPos == agentPos {
			goalPos = vToP(g.uniform.Start())
		}
	}

	for i := range g.grid {
		g.grid[i] = Empty
	}
	g.hitEdge = false
	g.agent = NewMouse(agentPos.X, agentPos.Y)
	g.goal = NewCheese(goalPos.X, goalPos.Y)
	g.paint()

	g.currentStep = ts.New(ts.First, 0, g.config.Discount, g.observation(),
		0)
	return g.currentStep.Copy(), nil
}

// startPosition resolves a requested starting position according to
// the boundary policy
func (g *GridWorld) startPosition(p *Position) (Position, error) {
	if p == nil {
		return vToP(g.uniform.Start()), nil
	}
	if ok, err := g.checkInBounds(p.X, p.Y); err != nil {
		return Position{}, err
	} else if !ok {
		return vToP(g.uniform.Start()), nil
	}
	return *p, nil
}

// Step takes one environmental step given action a and returns the next
// timestep as a timestep.TimeStep and a bool indicating whether or not
// the episode has ended. Actions are 1-dimensional and discrete in
// {Up, Down, Left, Right}; any other action results in an
// *environment.InvalidActionError and no change to the environment.
func (g *GridWorld) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	a, err := env.DiscreteAction(action, g.ActionSpec())
	if err != nil {
		return ts.TimeStep{}, false, fmt.Errorf("step: %w", err)
	}

	prev := g.Distance()
	x, y := g.agent.X, g.agent.Y
	switch a {
	case Up:
		y--
	case Down:
		y++
	case Left:
		x--
	case Right:
		x++
	}

	g.hitEdge = !g.inBounds(x, y)
	if !g.hitEdge {
		g.move(g.agent, x, y)
	}

	var reward float64
	if g.hitEdge && g.config.EdgeTerminates && !g.atGoal(nil) {
		reward = g.config.EdgePenalty
	} else {
		reward = g.task.GetReward(prev, g.Distance())
	}

	step := ts.New(ts.Mid, reward, g.config.Discount, g.observation(),
		g.currentStep.Number+1)
	g.ender.End(&step)

	g.currentStep = step
	return step.Copy(), step.Last(), nil
}

// Place forces the agent (which == Agent) or the goal (which == Goal)
// onto the cell (x, y). If (x, y) is off the grid, Place returns false
// and leaves the grid unchanged. Under the Strict boundary policy an
// *environment.OutOfBoundsError is returned as well.
//
// Place refreshes the observation of the current TimeStep but leaves
// its reward, type and step number unchanged.
func (g *GridWorld) Place(which Cell, x, y int) (bool, error) {
	var token *Token
	switch which {
	case Agent:
		token = g.agent
	case Goal:
		token = g.goal
	default:
		return false, fmt.Errorf("place: cannot place %v", which)
	}

	if ok, err := g.checkInBounds(x, y); !ok {
		return false, err
	}
	g.move(token, x, y)

	g.currentStep.Observation = g.observation()
	return true, nil
}

// atGoal returns whether the agent occupies the goal cell
func (g *GridWorld) atGoal(*mat.VecDense) bool {
	return g.task.AtGoal(g.agent.Position(), g.goal.Position())
}

// offEdge returns whether the last move tried to leave the grid
func (g *GridWorld) offEdge(*mat.VecDense) bool {
	return g.hitEdge
}

// checkInBounds checks whether (x, y) lies on the grid. Off-grid
// coordinates return false, along with an error under the Strict
// boundary policy.
func (g *GridWorld) checkInBounds(x, y int) (bool, error) {
	if g.inBounds(x, y) {
		return true, nil
	}
	if g.config.Boundary == Strict {
		return false, &env.OutOfBoundsError{X: x, Y: y, Width: g.config.Width,
			Length: g.config.Length}
	}
	return false, nil
}

func (g *GridWorld) inBounds(x, y int) bool {
	return x >= 0 && x < g.config.Width && y >= 0 && y < g.config.Length
}

// move moves token to (x, y), which must be on the grid
func (g *GridWorld) move(token *Token, x, y int) {
	g.grid[g.index(token.X, token.Y)] = Empty
	token.X, token.Y = x, y
	g.paint()
}

// paint draws both tokens onto the grid. The agent is drawn over the
// goal when the two coincide.
func (g *GridWorld) paint() {
	g.grid[g.index(g.goal.X, g.goal.Y)] = g.goal.Code
	g.grid[g.index(g.agent.X, g.agent.Y)] = g.agent.Code
}

func (g *GridWorld) index(x, y int) int {
	return y*g.config.Width + x
}

// observation encodes the current state according to the Config's
// Encoding
func (g *GridWorld) observation() *mat.VecDense {
	if g.config.Encoding == Dense {
		obs := mat.NewVecDense(len(g.grid), nil)
		for i, cell := range g.grid {
			obs.SetVec(i, float64(cell))
		}
		return obs
	}

	return mat.NewVecDense(4, []float64{
		float64(g.agent.X),
		float64(g.agent.Y),
		float64(g.goal.X),
		float64(g.goal.Y),
	})
}

// CurrentTimeStep returns a copy of the current TimeStep
func (g *GridWorld) CurrentTimeStep() ts.TimeStep {
	return g.currentStep.Copy()
}

// State returns the current observation without changing the
// environment
func (g *GridWorld) State() *mat.VecDense {
	return g.observation()
}

// At returns the content of cell (x, y)
func (g *GridWorld) At(x, y int) Cell {
	if !g.inBounds(x, y) {
		panic(fmt.Sprintf("at: (%d, %d) is out of bounds for map %dx%d",
			x, y, g.config.Width, g.config.Length))
	}
	return g.grid[g.index(x, y)]
}

// Dims gets the length (rows) and width (columns) of the GridWorld
func (g *GridWorld) Dims() (length, width int) {
	return g.config.Length, g.config.Width
}

// Agent returns a copy of the agent token
func (g *GridWorld) Agent() Token {
	return *g.agent
}

// Goal returns a copy of the goal token
func (g *GridWorld) Goal() Token {
	return *g.goal
}

// Distance returns the Euclidean distance between the agent and goal
func (g *GridWorld) Distance() float64 {
	return euclidean(g.agent.Position(), g.goal.Position())
}

// Config returns the configuration of the GridWorld
func (g *GridWorld) Config() Config {
	return g.config
}

// ActionSpec returns the action specification of the environment
func (g *GridWorld) ActionSpec() env.Spec {
	return env.NewIntervalSpec(env.Action, []r1.Interval{
		{Min: 0, Max: Actions - 1},
	}, env.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment
func (g *GridWorld) ObservationSpec() env.Spec {
	if g.config.Encoding == Dense {
		bounds := make([]r1.Interval, g.config.Length*g.config.Width)
		for i := range bounds {
			bounds[i] = r1.Interval{Min: float64(Empty), Max: float64(Goal)}
		}
		return env.NewIntervalSpec(env.Observation, bounds, env.Discrete)
	}

	x := r1.Interval{Min: 0, Max: float64(g.config.Width - 1)}
	y := r1.Interval{Min: 0, Max: float64(g.config.Length - 1)}
	return env.NewIntervalSpec(env.Observation, []r1.Interval{x, y, x, y},
		env.Discrete)
}

// DiscountSpec returns the discounting specification of the environment
func (g *GridWorld) DiscountSpec() env.Spec {
	return env.NewDiscountSpec(g.config.Discount)
}

// Render writes the agent and goal coordinates to w, followed by the
// grid itself when using the Dense encoding
func (g *GridWorld) Render(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %v\n", g.agent.Name, g.agent.Position())
	fmt.Fprintf(&b, "%v: %v\n", g.goal.Name, g.goal.Position())

	if g.config.Encoding == Dense {
		for y := 0; y < g.config.Length; y++ {
			row := g.grid[g.index(0, y):g.index(0, y+1)]
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = cell.String()
			}
			fmt.Fprintln(&b, strings.Join(cells, " "))
		}
	}
	fmt.Fprintln(&b)

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderImage saves a PNG drawing of the grid at filename, with each
// cell cellSize pixels wide
func (g *GridWorld) RenderImage(filename string, cellSize int) error {
	return render.SavePNG(gridImage{g}, cellSize, filename)
}

// String returns a string representation of the environment
func (g *GridWorld) String() string {
	str := "GridWorld | %v: %v  |  %v: %v  |  Bounds: (%d, %d)"
	return fmt.Sprintf(str, g.agent.Name, g.agent.Position(), g.goal.Name,
		g.goal.Position(), g.config.Width, g.config.Length)
}

// gridImage adapts a GridWorld to render.Grid
type gridImage struct {
	g *GridWorld
}

func (i gridImage) Dims() (int, int) {
	return i.g.Dims()
}

func (i gridImage) CellColor(r, c int) color.Color {
	switch i.g.At(c, r) {
	case Agent:
		return render.AgentColor
	case Goal:
		return render.GoalColor
	default:
		return render.Background
	}
}

func (i gridImage) Label(r, c int) string {
	if cell := i.g.At(c, r); cell != Empty {
		return cell.String()
	}
	return ""
}

// vToP converts an (x, y) vector to a Position
func vToP(v mat.Vector) Position {
	return Position{int(v.AtVec(0)), int(v.AtVec(1))}
}
