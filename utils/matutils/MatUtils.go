// Package matutils implements utility function for working with mat.Matrix
// structs
package matutils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Radices returns the number of integer values each element of a
// discrete vector bounded by bounds can take
func Radices(bounds []r1.Interval) []int {
	radices := make([]int, len(bounds))
	for i, b := range bounds {
		radices[i] = int(b.Max-b.Min) + 1
	}
	return radices
}

// Ravel converts a discrete vector bounded by bounds into a single
// mixed-radix index, the first element being the most significant.
// An error is returned if v lies outside of bounds.
func Ravel(v mat.Vector, bounds []r1.Interval) (int, error) {
	if v.Len() != len(bounds) {
		return 0, fmt.Errorf("ravel: vector of length %d does not match %d "+
			"bounds", v.Len(), len(bounds))
	}

	index := 0
	for i, b := range bounds {
		value := v.AtVec(i)
		if value < b.Min || value > b.Max || value != math.Trunc(value) {
			return 0, fmt.Errorf("ravel: element %d = %v ∉ [%v, %v]", i,
				value, b.Min, b.Max)
		}
		index = index*(int(b.Max-b.Min)+1) + int(value-b.Min)
	}
	return index, nil
}
