package calculate

import (
	"math"
	"sort"
)

// Mean calculates the simple average of values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}

// StdDev calculates the sample standard deviation of values.
// Returns 0 for fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)
	var sumSquares float64
	for _, value := range values {
		diff := value - mean
		sumSquares += diff * diff
	}

	return math.Sqrt(sumSquares / float64(len(values)-1))
}

// Median returns the middle value of the distribution.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Quantile returns the q-th quantile (q in [0,1]) using linear
// interpolation between the closest ranks.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}

	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// PercentileRank returns which percentile of values a given value sits at,
// counted as the share of values at or below it (0-100 scale). The batch
// maximum ranks exactly 100.
func PercentileRank(values []float64, value float64) float64 {
	if len(values) == 0 {
		return 0
	}

	atOrBelow := 0
	for _, v := range values {
		if v <= value {
			atOrBelow++
		}
	}

	return float64(atOrBelow) / float64(len(values)) * 100
}
