// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"golang.org/x/exp/rand"
)

// Clip clips value to within [min, max]
func Clip(value, min, max float64) float64 {
	return math.Max(math.Min(value, max), min)
}

// MaxSlice gets the maximum value and the indices of all elements equal
// to the maximum in a slice of float64
func MaxSlice(values []float64) (max float64, indices []int) {
	max, indices = values[0], []int{0}

	for i := 1; i < len(values); i++ {
		if values[i] > max {
			max = values[i]
			indices = []int{i}
		} else if values[i] == max {
			indices = append(indices, i)
		}
	}
	return
}

// ArgMax returns the index of the maximum value in values. Ties are
// broken uniformly at random using rng.
func ArgMax(values []float64, rng *rand.Rand) int {
	_, indices := MaxSlice(values)
	if len(indices) == 1 {
		return indices[0]
	}
	return indices[rng.Intn(len(indices))]
}

// Max calculates and returns the maximum float64 in a list
func Max(floats ...float64) float64 {
	max := floats[0]
	for _, val := range floats {
		if val > max {
			max = val
		}
	}
	return max
}
