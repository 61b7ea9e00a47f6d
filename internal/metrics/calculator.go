package metrics

import (
	"math"
	"sort"

	"github.com/saveenergy/qlogstat/pkg/types"
)

// Summarize computes mean, population variance, extremes and the
// p50/p95/p99 percentiles of values. An empty input yields a zero summary
// with Count == 0 rather than NaNs.
func Summarize(values []float64) types.SeriesSummary {
	if len(values) == 0 {
		return types.SeriesSummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := Mean(values)
	variance := varianceAround(values, mean)

	return types.SeriesSummary{
		Count:    len(values),
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		P50:      Percentile(sorted, 50),
		P95:      Percentile(sorted, 95),
		P99:      Percentile(sorted, 99),
	}
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance is the population variance (divisor n).
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return varianceAround(values, Mean(values))
}

func varianceAround(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

// Percentile returns the p-th percentile (0-100) of an ascending slice,
// interpolating linearly between the two closest ranks at p/100*(n-1).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// SummarizeBytes is Summarize over the values of a byte gauge series.
func SummarizeBytes(samples []types.ByteSample) types.SeriesSummary {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = float64(s.Bytes)
	}
	return Summarize(values)
}
