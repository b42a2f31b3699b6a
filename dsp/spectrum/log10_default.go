//go:build !fastmath

package spectrum

import "math"

func log10(x float64) float64 {
	return math.Log10(x)
}
