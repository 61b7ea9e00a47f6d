package plot

import (
	"fmt"

	"github.com/saveenergy/qlogstat/internal/metrics"
	"github.com/saveenergy/qlogstat/pkg/types"
)

const histogramBuckets = 10

// TraceCharts renders every chart for one bundle in display order: RTT,
// RTT distribution, bytes in flight, congestion window, losses and traffic.
func TraceCharts(b *types.MetricsBundle, width, height int) []string {
	charts := []string{
		LineChart(Series{
			Title:  "Smoothed RTT",
			XLabel: "time (ms)",
			YLabel: "RTT (ms)",
			X:      b.RTTTimes(),
			Y:      b.RTTValues(),
		}, width, height),
		BarChart(rttDistribution(b), width, height),
		LineChart(byteSeries("Bytes in flight", b.BytesInFlightSeries), width, height),
		LineChart(byteSeries("Congestion window", b.CongestionWindowSeries), width, height),
	}

	times := make([]float64, len(b.PacketLossSeries))
	sizes := make([]float64, len(b.PacketLossSeries))
	for i, l := range b.PacketLossSeries {
		times[i] = l.TimeMs
		sizes[i] = float64(l.PacketSize)
	}
	charts = append(charts, LossChart("Lost bytes", times, sizes, width, height))

	charts = append(charts, BarChart(Bars{
		Title: "Traffic",
		Unit:  "B",
		Items: []Bar{
			{Label: "sent", Value: float64(b.TotalBytesSent)},
			{Label: "received", Value: float64(b.TotalBytesReceived)},
			{Label: "lost", Value: float64(b.LostBytes())},
		},
	}, width, height))
	return charts
}

func byteSeries(title string, samples []types.ByteSample) Series {
	s := Series{
		Title:  title,
		XLabel: "time (ms)",
		YLabel: "bytes",
		X:      make([]float64, len(samples)),
		Y:      make([]float64, len(samples)),
	}
	for i, sample := range samples {
		s.X[i] = sample.TimeMs
		s.Y[i] = float64(sample.Bytes)
	}
	return s
}

func rttDistribution(b *types.MetricsBundle) Bars {
	bars := Bars{Title: "RTT distribution (ms)"}
	if len(b.RTTSeries) == 0 {
		return bars
	}
	h := metrics.RTTHistogram(b, histogramBuckets)
	for i, c := range h.Counts() {
		lo, hi := h.Bounds(i)
		bars.Items = append(bars.Items, Bar{
			Label: fmt.Sprintf("%.0f-%.0f", lo, hi),
			Value: float64(c),
		})
	}
	return bars
}
