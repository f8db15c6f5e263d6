package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of vs, 0 for an empty slice.
func Mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// Median returns the median of vs, 0 for an empty slice. The input is not
// modified.
func Median(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := make([]float64, len(vs))
	copy(sorted, vs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// StdDev returns the population standard deviation of vs.
func StdDev(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := Mean(vs)
	var sum float64
	for _, v := range vs {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vs)))
}

// CV returns the coefficient of variation (stddev / mean), a scale-free
// volatility measure. Zero mean yields 0 rather than a division error.
func CV(vs []float64) float64 {
	m := Mean(vs)
	if m == 0 {
		return 0
	}
	return StdDev(vs) / m
}
