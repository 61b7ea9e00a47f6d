package types

import "github.com/saveenergy/qlogstat/pkg/diagnostic"

// SeriesSummary describes a numeric series. Count is zero for an empty
// series, in which case every other field is zero as well.
type SeriesSummary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"stddev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	P50      float64 `json:"p50"`
	P95      float64 `json:"p95"`
	P99      float64 `json:"p99"`
}

func (s SeriesSummary) Empty() bool {
	return s.Count == 0
}

type LossMetrics struct {
	Count       int     `json:"count"`
	Bytes       uint64  `json:"bytes"`
	LossPercent float64 `json:"loss_percent"`
}

type TrafficMetrics struct {
	BytesSent       uint64 `json:"bytes_sent"`
	PacketsSent     uint64 `json:"packets_sent"`
	BytesReceived   uint64 `json:"bytes_received"`
	PacketsReceived uint64 `json:"packets_received"`
}

// TraceReport is the summary of one MetricsBundle handed to formatters,
// the history store and the MCP tools.
type TraceReport struct {
	TraceIndex       int            `json:"trace_index"`
	Title            string         `json:"title,omitempty"`
	VantagePoint     string         `json:"vantage_point,omitempty"`
	EventCount       int            `json:"event_count"`
	DurationMs       float64        `json:"duration_ms"`
	Traffic          TrafficMetrics `json:"traffic"`
	SmoothedRTTMs    SeriesSummary  `json:"smoothed_rtt_ms"`
	BytesInFlight    SeriesSummary  `json:"bytes_in_flight"`
	CongestionWindow SeriesSummary  `json:"congestion_window"`
	Loss             LossMetrics    `json:"loss"`

	Interpretation *diagnostic.Interpretation `json:"interpretation,omitempty"`
}
