package types

// RTTSample is one smoothed RTT observation, both values in milliseconds.
type RTTSample struct {
	TimeMs        float64 `json:"time_ms"`
	SmoothedRTTMs float64 `json:"smoothed_rtt_ms"`
}

// ByteSample pairs a byte-valued gauge with the event time it was reported at.
type ByteSample struct {
	TimeMs float64 `json:"time_ms"`
	Bytes  uint64  `json:"bytes"`
}

type LossSample struct {
	TimeMs     float64 `json:"time_ms"`
	PacketSize uint64  `json:"packet_size"`
}

// MetricsBundle holds everything derived from a single trace. The aggregator
// is its only writer; once returned it must be treated as read-only.
type MetricsBundle struct {
	TraceIndex   int    `json:"trace_index"`
	Title        string `json:"title,omitempty"`
	VantagePoint string `json:"vantage_point,omitempty"`
	EventCount   int    `json:"event_count"`

	TotalBytesSent       uint64 `json:"total_bytes_sent"`
	TotalPacketsSent     uint64 `json:"total_packets_sent"`
	TotalBytesReceived   uint64 `json:"total_bytes_received"`
	TotalPacketsReceived uint64 `json:"total_packets_received"`

	RTTSeries              []RTTSample  `json:"rtt_series"`
	BytesInFlightSeries    []ByteSample `json:"bytes_in_flight_series"`
	CongestionWindowSeries []ByteSample `json:"congestion_window_series"`
	PacketLossSeries       []LossSample `json:"packet_loss_series"`

	FirstEventMs float64 `json:"first_event_ms"`
	LastEventMs  float64 `json:"last_event_ms"`
}

// NewMetricsBundle returns an empty bundle whose series are non-nil, so an
// empty trace encodes as empty arrays rather than null.
func NewMetricsBundle(traceIndex int) *MetricsBundle {
	return &MetricsBundle{
		TraceIndex:             traceIndex,
		RTTSeries:              []RTTSample{},
		BytesInFlightSeries:    []ByteSample{},
		CongestionWindowSeries: []ByteSample{},
		PacketLossSeries:       []LossSample{},
	}
}

// RTTValues drops timestamps and returns the smoothed RTT values in order.
func (b *MetricsBundle) RTTValues() []float64 {
	out := make([]float64, len(b.RTTSeries))
	for i, s := range b.RTTSeries {
		out[i] = s.SmoothedRTTMs
	}
	return out
}

// RTTTimes returns the event times of the RTT series, parallel to RTTValues.
func (b *MetricsBundle) RTTTimes() []float64 {
	out := make([]float64, len(b.RTTSeries))
	for i, s := range b.RTTSeries {
		out[i] = s.TimeMs
	}
	return out
}

func (b *MetricsBundle) LostBytes() uint64 {
	var total uint64
	for _, s := range b.PacketLossSeries {
		total += s.PacketSize
	}
	return total
}
