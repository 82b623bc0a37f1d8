package driftwatch

import (
	"math"
	"sort"
)

// Baseline is the statistical summary of a metric's historical window,
// excluding the most recent point. It is recomputed on every analysis call
// and never persisted, which keeps the engine stateless.
type Baseline struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	P50        float64 `json:"p50"`
	P95        float64 `json:"p95"`
	P99        float64 `json:"p99"`
	SampleSize int     `json:"sample_size"`
}

// computeBaseline summarizes the given values. It returns false when fewer
// than two values are available; the caller skips the series in that case
// (a policy decision, not an error).
func computeBaseline(vals []float64) (Baseline, bool) {
	n := len(vals)
	if n < 2 {
		return Baseline{}, false
	}

	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(n)

	// Population variance, not sample-corrected. Fixed design choice: the
	// window is treated as the whole population, not a sample of one.
	variance := 0.0
	minVal, maxVal := vals[0], vals[0]
	for _, v := range vals {
		d := v - mean
		variance += d * d
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	variance /= float64(n)

	sorted := make([]float64, n)
	copy(sorted, vals)
	sort.Float64s(sorted)

	return Baseline{
		Mean:       mean,
		StdDev:     math.Sqrt(variance),
		Min:        minVal,
		Max:        maxVal,
		P50:        nearestRank(sorted, 0.5),
		P95:        nearestRank(sorted, 0.95),
		P99:        nearestRank(sorted, 0.99),
		SampleSize: n,
	}, true
}

// nearestRank returns sorted[floor(n*q)] with no interpolation.
func nearestRank(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(float64(len(sorted)) * q))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
