package metrics

import (
	"github.com/saveenergy/qlogstat/pkg/diagnostic"
	"github.com/saveenergy/qlogstat/pkg/types"
)

// BuildReport summarizes a bundle into the form printed by the formatters
// and kept by the history store.
func BuildReport(b *types.MetricsBundle) types.TraceReport {
	rtt := Summarize(b.RTTValues())

	report := types.TraceReport{
		TraceIndex:   b.TraceIndex,
		Title:        b.Title,
		VantagePoint: b.VantagePoint,
		EventCount:   b.EventCount,
		Traffic: types.TrafficMetrics{
			BytesSent:       b.TotalBytesSent,
			PacketsSent:     b.TotalPacketsSent,
			BytesReceived:   b.TotalBytesReceived,
			PacketsReceived: b.TotalPacketsReceived,
		},
		SmoothedRTTMs:    rtt,
		BytesInFlight:    SummarizeBytes(b.BytesInFlightSeries),
		CongestionWindow: SummarizeBytes(b.CongestionWindowSeries),
		Loss: types.LossMetrics{
			Count:       len(b.PacketLossSeries),
			Bytes:       b.LostBytes(),
			LossPercent: LossPercent(uint64(len(b.PacketLossSeries)), b.TotalPacketsSent),
		},
	}
	if b.EventCount > 0 {
		report.DurationMs = b.LastEventMs - b.FirstEventMs
	}

	report.Interpretation = diagnostic.Interpret(diagnostic.Params{
		SmoothedRTTMeanMs: rtt.Mean,
		RTTStdDevMs:       rtt.StdDev,
		RTTP99Ms:          rtt.P99,
		RTTSamples:        rtt.Count,
		LossPercent:       report.Loss.LossPercent,
		PacketsSent:       b.TotalPacketsSent,
	})
	return report
}

// LossPercent is lost packets as a percentage of sent packets, capped at
// 100. Nothing sent means nothing lost.
func LossPercent(lost, sent uint64) float64 {
	if sent == 0 {
		return 0
	}
	pct := float64(lost) / float64(sent) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// RTTHistogram buckets the smoothed RTT samples of b.
func RTTHistogram(b *types.MetricsBundle, buckets int) *Histogram {
	return HistogramOf(b.RTTValues(), buckets)
}
