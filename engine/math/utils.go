package math

import (
	stdmath "math"

	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Percent returns n/d expressed as a percentage clamped to [0, 100].
// A zero denominator yields 0.
func Percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return Clamp(float64(n)/float64(d)*100.0, 0, 100)
}

// RoundPercent rounds a percentage to the nearest integer in [0, 100].
func RoundPercent(p float64) int {
	return Clamp(int(stdmath.Round(p)), 0, 100)
}
