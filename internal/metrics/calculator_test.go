package metrics_test

import (
	"math"
	"testing"

	"github.com/saveenergy/qlogstat/internal/metrics"
	"github.com/saveenergy/qlogstat/pkg/types"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPercentileInterpolates(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 3},
		{95, 4.8},
		{99, 4.96},
		{100, 5},
		{-10, 1},
		{150, 5},
	}
	for _, tt := range tests {
		if got := metrics.Percentile(sorted, tt.p); !approx(got, tt.want) {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPercentileEdgeCases(t *testing.T) {
	if got := metrics.Percentile(nil, 95); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
	if got := metrics.Percentile([]float64{7}, 99); got != 7 {
		t.Errorf("single = %v, want 7", got)
	}
}

func TestSummarize(t *testing.T) {
	values := []float64{100, 20, 27.5, 25}
	s := metrics.Summarize(values)

	if s.Count != 4 {
		t.Fatalf("count = %d", s.Count)
	}
	if !approx(s.Mean, 43.125) {
		t.Errorf("mean = %v", s.Mean)
	}
	// Population variance: sum((x-mean)^2)/n.
	if !approx(s.Variance, 1085.546875) {
		t.Errorf("variance = %v", s.Variance)
	}
	if !approx(s.StdDev, math.Sqrt(1085.546875)) {
		t.Errorf("stddev = %v", s.StdDev)
	}
	if s.Min != 20 || s.Max != 100 {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if !approx(s.P50, 26.25) || !approx(s.P95, 89.125) || !approx(s.P99, 97.825) {
		t.Errorf("percentiles = %v/%v/%v", s.P50, s.P95, s.P99)
	}
	if values[0] != 100 {
		t.Error("Summarize must not reorder its input")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := metrics.Summarize(nil)
	if !s.Empty() || s.Count != 0 {
		t.Fatalf("summary = %+v, want empty", s)
	}
	if math.IsNaN(s.Mean) || math.IsNaN(s.Variance) {
		t.Fatalf("summary has NaN: %+v", s)
	}
}

func TestVariance(t *testing.T) {
	if got := metrics.Variance([]float64{1, 2, 3, 4, 5}); got != 2 {
		t.Errorf("Variance = %v, want 2", got)
	}
	if got := metrics.Variance([]float64{42}); got != 0 {
		t.Errorf("single-sample variance = %v, want 0", got)
	}
	if got := metrics.Variance(nil); got != 0 {
		t.Errorf("empty variance = %v, want 0", got)
	}
}

func TestSummarizeBytes(t *testing.T) {
	s := metrics.SummarizeBytes([]types.ByteSample{{TimeMs: 1, Bytes: 1000}, {TimeMs: 2, Bytes: 3000}})
	if s.Count != 2 || s.Mean != 2000 || s.Max != 3000 {
		t.Fatalf("summary = %+v", s)
	}
}
