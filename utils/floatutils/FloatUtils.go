// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips a floating point to within a minimum and maximum value
func Clip(value, min, max float64) float64 {
	return math.Max(math.Min(value, max), min)
}

// ClipInterval is a wrapper to use Clip with an r1.Interval instead of
// a separate max and min value
func ClipInterval(value float64, interval r1.Interval) float64 {
	return Clip(value, interval.Min, interval.Max)
}

// MaxSlice returns the maximum of a non-empty slice and the indices at
// which it occurs, in increasing order
func MaxSlice(values []float64) (max float64, indices []int) {
	max = floats.Max(values)
	for i, value := range values {
		if value == max {
			indices = append(indices, i)
		}
	}
	return max, indices
}
