package gridworld

import "fmt"

// BoundaryPolicy determines what happens when a token is forced onto
// a cell outside of the grid
type BoundaryPolicy string

const (
	// Lenient placements outside the grid fail silently, leaving the
	// grid unchanged
	Lenient BoundaryPolicy = "Lenient"

	// Strict placements outside the grid return an
	// *environment.OutOfBoundsError
	Strict BoundaryPolicy = "Strict"
)

// Encoding determines how observations are encoded
type Encoding string

const (
	// Dense observations are the full grid of cell codes in row-major
	// order, index y*width + x
	Dense Encoding = "Dense"

	// Simplified observations are (agentX, agentY, goalX, goalY)
	Simplified Encoding = "Simplified"
)

// Config configures a GridWorld. Configs are JSON serializable.
type Config struct {
	Length int // rows
	Width  int // columns

	Boundary BoundaryPolicy
	Encoding Encoding

	// EdgeTerminates ends the episode with reward EdgePenalty when the
	// agent tries to move off the grid. Otherwise such moves are no-ops.
	// The same penalty applies to every edge and defaults to -1. The
	// AgentSearch mouse game instead penalises only leaving through the
	// top edge, with -10.
	EdgeTerminates bool
	EdgePenalty    float64

	// EpisodeCutoff ends episodes after this many steps, 0 disables
	// the cutoff
	EpisodeCutoff int

	Discount float64
}

// DefaultConfig returns the 10x10 mouse-and-cheese configuration
func DefaultConfig() Config {
	return Config{
		Length:      10,
		Width:       10,
		Boundary:    Lenient,
		Encoding:    Simplified,
		EdgePenalty: -1.0,
		Discount:    1.0,
	}
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.Length <= 0 || c.Width <= 0 {
		return fmt.Errorf("grid dimensions must be positive, have %dx%d",
			c.Width, c.Length)
	}
	if c.Length*c.Width < 2 {
		return fmt.Errorf("grid must have room for the agent and goal, "+
			"have %dx%d", c.Width, c.Length)
	}
	if c.Boundary != Lenient && c.Boundary != Strict {
		return fmt.Errorf("unknown boundary policy %q", c.Boundary)
	}
	if c.Encoding != Dense && c.Encoding != Simplified {
		return fmt.Errorf("unknown observation encoding %q", c.Encoding)
	}
	if c.EpisodeCutoff < 0 {
		return fmt.Errorf("episode cutoff cannot be negative, have %d",
			c.EpisodeCutoff)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("discount %v ∉ [0, 1]", c.Discount)
	}
	return nil
}
