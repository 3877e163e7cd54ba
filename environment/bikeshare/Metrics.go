package bikeshare

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Metrics tracks how well requests are being served
type Metrics struct {
	// Unserviced is the number of requests in the current episode
	// that could not be served
	Unserviced int

	// Expense is the total incentive cost paid so far. It is never
	// reset between episodes.
	Expense float64

	// UnserviceRatios and Expenses hold one entry per completed episode
	UnserviceRatios []float64
	Expenses        []float64
}

// Copy returns a deep copy of the Metrics
func (m Metrics) Copy() Metrics {
	ratios := make([]float64, len(m.UnserviceRatios))
	copy(ratios, m.UnserviceRatios)
	expenses := make([]float64, len(m.Expenses))
	copy(expenses, m.Expenses)

	return Metrics{m.Unserviced, m.Expense, ratios, expenses}
}

// Save saves the Metrics to a file using gob encoding
func (m Metrics) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create file: %w", err)
	}
	defer file.Close()

	enc := gob.NewEncoder(file)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("save: could not encode metrics: %w", err)
	}
	return nil
}

// LoadMetrics loads Metrics previously saved with Save
func LoadMetrics(filename string) (Metrics, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Metrics{}, fmt.Errorf("loadMetrics: could not open file: %w",
			err)
	}
	defer file.Close()

	var m Metrics
	dec := gob.NewDecoder(file)
	if err := dec.Decode(&m); err != nil {
		return Metrics{}, fmt.Errorf("loadMetrics: could not decode: %w", err)
	}
	return m, nil
}
