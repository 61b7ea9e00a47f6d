package metrics_test

import (
	"math"
	"testing"

	"github.com/saveenergy/qlogstat/internal/metrics"
)

func TestHistogramRecord(t *testing.T) {
	h := metrics.NewHistogram(10, 3)
	for _, v := range []float64{0, 5, 10, 19.9, 25, 30, 1000, -4, math.NaN(), math.Inf(1)} {
		h.Record(v)
	}

	want := []uint32{4, 2, 1}
	got := h.Counts()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("counts = %v, want %v", got, want)
		}
	}
	if h.Overflow() != 3 {
		t.Fatalf("overflow = %d, want 3", h.Overflow())
	}

	h.Reset()
	if h.Overflow() != 0 || h.Counts()[0] != 0 {
		t.Fatal("Reset should clear every bucket")
	}
}

func TestHistogramOfPutsMaxInLastBucket(t *testing.T) {
	values := []float64{20, 25, 27.5, 100}
	h := metrics.HistogramOf(values, 4)

	if h.Overflow() != 0 {
		t.Fatalf("overflow = %d, want 0", h.Overflow())
	}
	counts := h.Counts()
	if counts[3] != 1 {
		t.Fatalf("last bucket = %d, want 1 (%v)", counts[3], counts)
	}
	var total uint32
	for _, c := range counts {
		total += c
	}
	if total != uint32(len(values)) {
		t.Fatalf("total = %d, want %d", total, len(values))
	}

	lo, hi := h.Bounds(0)
	if lo != 0 || hi != h.BucketWidth() {
		t.Fatalf("bounds(0) = [%v, %v)", lo, hi)
	}
}

func TestHistogramOfDefaults(t *testing.T) {
	h := metrics.HistogramOf(nil, 0)
	if h.BucketCount() != 1 || h.BucketWidth() != 1 {
		t.Fatalf("histogram = %d buckets of %v", h.BucketCount(), h.BucketWidth())
	}
}
