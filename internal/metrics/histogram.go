package metrics

import "math"

// Histogram counts samples in fixed-width buckets starting at zero. Samples
// past the last bucket are counted in the overflow.
type Histogram struct {
	bucketWidth float64
	buckets     []uint32
	overflow    uint32
}

func NewHistogram(bucketWidth float64, bucketCount int) *Histogram {
	if bucketWidth <= 0 {
		bucketWidth = 1
	}
	if bucketCount <= 0 {
		bucketCount = 1
	}
	return &Histogram{
		bucketWidth: bucketWidth,
		buckets:     make([]uint32, bucketCount),
	}
}

// HistogramOf sizes bucketCount buckets so the largest value lands in the
// last one, then records every value.
func HistogramOf(values []float64, bucketCount int) *Histogram {
	if bucketCount <= 0 {
		bucketCount = 1
	}
	var maxVal float64
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	width := 1.0
	if maxVal > 0 {
		// Widen slightly so maxVal falls inside the last bucket, not the overflow.
		width = maxVal / float64(bucketCount) * (1 + 1e-9)
	}
	h := NewHistogram(width, bucketCount)
	for _, v := range values {
		h.Record(v)
	}
	return h
}

func (h *Histogram) BucketWidth() float64 {
	return h.bucketWidth
}

func (h *Histogram) BucketCount() int {
	return len(h.buckets)
}

func (h *Histogram) Record(sample float64) {
	if sample < 0 || math.IsNaN(sample) {
		sample = 0
	}
	if sample >= h.bucketWidth*float64(len(h.buckets)) {
		h.overflow++
		return
	}
	index := int(sample / h.bucketWidth)
	if index >= len(h.buckets) {
		h.overflow++
		return
	}
	h.buckets[index]++
}

// Bounds returns the half-open range [lo, hi) covered by bucket i.
func (h *Histogram) Bounds(i int) (float64, float64) {
	return float64(i) * h.bucketWidth, float64(i+1) * h.bucketWidth
}

func (h *Histogram) Overflow() uint32 {
	return h.overflow
}

func (h *Histogram) Reset() {
	for i := range h.buckets {
		h.buckets[i] = 0
	}
	h.overflow = 0
}

func (h *Histogram) CopyTo(dst []uint32) uint32 {
	copy(dst, h.buckets)
	return h.overflow
}

func (h *Histogram) Counts() []uint32 {
	out := make([]uint32, len(h.buckets))
	h.CopyTo(out)
	return out
}
