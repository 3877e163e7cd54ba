package bikeshare

import "fmt"

// Config configures a BikeShare environment. Configs are JSON
// serializable.
type Config struct {
	Length int // rows of stations
	Width  int // columns of stations

	// ActionsPerEpisode is the number of requests handled before the
	// pending arrivals are committed and the episode ends
	ActionsPerEpisode int

	// LowSupply seeds the first ⌊Length/2⌋ rows, HighSupply the rest
	LowSupply  int
	HighSupply int

	// TargetSupply is the balanced number of bikes at each station
	TargetSupply float64

	// Relocation costs are sampled uniformly from
	// {0, ..., MaxRelocationCost-1}
	MaxRelocationCost int

	Discount float64
}

// DefaultConfig returns the 6x6 configuration with the default supply
// levels
func DefaultConfig() Config {
	return Config{
		Length:            6,
		Width:             6,
		ActionsPerEpisode: 100,
		LowSupply:         2,
		HighSupply:        10,
		TargetSupply:      5,
		MaxRelocationCost: 5,
		Discount:          1.0,
	}
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.Length <= 0 || c.Width <= 0 {
		return fmt.Errorf("grid dimensions must be positive, have %dx%d",
			c.Length, c.Width)
	}
	if c.ActionsPerEpisode <= 0 {
		return fmt.Errorf("actions per episode must be positive, have %d",
			c.ActionsPerEpisode)
	}
	if c.LowSupply < 0 || c.HighSupply < 0 {
		return fmt.Errorf("initial supply cannot be negative, have %d and %d",
			c.LowSupply, c.HighSupply)
	}
	if c.MaxRelocationCost <= 0 {
		return fmt.Errorf("maximum relocation cost must be positive, have %d",
			c.MaxRelocationCost)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("discount %v ∉ [0, 1]", c.Discount)
	}
	return nil
}

// TotalSupply returns the number of bikes in the system, which is
// conserved across steps and episodes
func (c Config) TotalSupply() int {
	low := c.Length / 2
	return low*c.Width*c.LowSupply + (c.Length-low)*c.Width*c.HighSupply
}
