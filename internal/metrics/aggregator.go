package metrics

import (
	"github.com/saveenergy/qlogstat/internal/logging"
	"github.com/saveenergy/qlogstat/internal/qlog"
	"github.com/saveenergy/qlogstat/pkg/types"
)

var log = logging.NewLogger("metrics")

// Aggregate makes a single forward pass over trace and returns its metrics.
//
// On the first malformed event it stops and returns the bundle built so far
// together with the error. That partial bundle reflects every event before
// the offending one, but callers must not report it as the trace's metrics.
func Aggregate(trace qlog.Trace) (*types.MetricsBundle, error) {
	bundle := types.NewMetricsBundle(trace.Index)
	bundle.Title = trace.Title
	bundle.VantagePoint = trace.VantagePoint

	for i, raw := range trace.Events {
		ev, err := qlog.Decode(raw)
		if err != nil {
			log.Debug("aggregation stopped",
				logging.Field{Key: "trace", Value: trace.Index},
				logging.Field{Key: "event", Value: i},
				logging.Field{Key: "error", Value: err})
			return bundle, err
		}
		apply(bundle, ev)
	}

	log.Debug("trace aggregated",
		logging.Field{Key: "trace", Value: trace.Index},
		logging.Field{Key: "events", Value: bundle.EventCount},
		logging.Field{Key: "rtt_samples", Value: len(bundle.RTTSeries)},
		logging.Field{Key: "losses", Value: len(bundle.PacketLossSeries)})
	return bundle, nil
}

func apply(b *types.MetricsBundle, ev qlog.Event) {
	t := ev.RelTimeMs()
	if b.EventCount == 0 {
		b.FirstEventMs = t
	}
	b.LastEventMs = t
	b.EventCount++

	switch e := ev.(type) {
	case qlog.MetricsUpdated:
		if e.HasSmoothedRTT {
			b.RTTSeries = append(b.RTTSeries, types.RTTSample{TimeMs: t, SmoothedRTTMs: e.SmoothedRTTMs})
		}
		if e.HasBytesInFlight {
			b.BytesInFlightSeries = append(b.BytesInFlightSeries, types.ByteSample{TimeMs: t, Bytes: e.BytesInFlight})
		}
		if e.HasCongestionWindow {
			b.CongestionWindowSeries = append(b.CongestionWindowSeries, types.ByteSample{TimeMs: t, Bytes: e.CongestionWindow})
		}
	case qlog.PacketLost:
		b.PacketLossSeries = append(b.PacketLossSeries, types.LossSample{TimeMs: t, PacketSize: e.PacketSize})
	case qlog.PacketReceived:
		b.TotalPacketsReceived++
		b.TotalBytesReceived += e.PacketSize
	case qlog.PacketSent:
		b.TotalPacketsSent++
		b.TotalBytesSent += e.PacketSize
	case qlog.Unrecognized:
	}
}

// AggregateAll produces one independent bundle per trace, in document order.
// It stops at the first trace that fails and returns the bundles completed
// before it along with the error.
func AggregateAll(traces []qlog.Trace) ([]*types.MetricsBundle, error) {
	bundles := make([]*types.MetricsBundle, 0, len(traces))
	for _, trace := range traces {
		bundle, err := Aggregate(trace)
		if err != nil {
			return bundles, err
		}
		bundles = append(bundles, bundle)
	}
	return bundles, nil
}
