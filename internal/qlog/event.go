package qlog

import (
	"math"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/saveenergy/qlogstat/pkg/errors"
)

// MicrosToMillis converts the document clock (microseconds) to milliseconds.
// It is a multiplication, not a division, so results match t*0.001 exactly.
const MicrosToMillis = 0.001

const (
	CategoryMetricsUpdated = "metrics_updated"
	CategoryPacketLost     = "packet_lost"
	CategoryPacketSent     = "packet_sent"
	CategoryPacketReceived = "packet_received"
)

// Event is one decoded record. The concrete type is one of MetricsUpdated,
// PacketLost, PacketSent, PacketReceived or Unrecognized.
type Event interface {
	EventIndex() int
	RelTimeMs() float64
	isEvent()
}

type eventBase struct {
	Index  int
	TimeMs float64
}

func (e eventBase) EventIndex() int    { return e.Index }
func (e eventBase) RelTimeMs() float64 { return e.TimeMs }
func (eventBase) isEvent()             {}

// MetricsUpdated carries the optional recovery metrics of a metrics_updated
// record. Each Has* flag is independent of the others.
type MetricsUpdated struct {
	eventBase
	SmoothedRTTMs       float64
	HasSmoothedRTT      bool
	BytesInFlight       uint64
	HasBytesInFlight    bool
	CongestionWindow    uint64
	HasCongestionWindow bool
}

type PacketLost struct {
	eventBase
	PacketSize uint64
}

type PacketSent struct {
	eventBase
	PacketSize uint64
}

type PacketReceived struct {
	eventBase
	PacketSize uint64
}

// Unrecognized is any category this tool does not aggregate.
type Unrecognized struct {
	eventBase
	Category string
}

// Decode validates raw and converts it into its typed variant. Every
// category needs a numeric time; the packet categories additionally need a
// non-negative integer header.packet_size.
func Decode(raw RawEvent) (Event, error) {
	if !raw.HasTime {
		return nil, errors.ErrMalformedEvent(raw.TraceIndex, raw.Index, raw.Category, "event time is missing or not a number")
	}
	base := eventBase{Index: raw.Index, TimeMs: raw.Time * MicrosToMillis}

	switch raw.Category {
	case CategoryMetricsUpdated:
		return decodeMetrics(base, raw.Payload), nil
	case CategoryPacketLost:
		size, err := requirePacketSize(raw)
		if err != nil {
			return nil, err
		}
		return PacketLost{eventBase: base, PacketSize: size}, nil
	case CategoryPacketSent:
		size, err := requirePacketSize(raw)
		if err != nil {
			return nil, err
		}
		return PacketSent{eventBase: base, PacketSize: size}, nil
	case CategoryPacketReceived:
		size, err := requirePacketSize(raw)
		if err != nil {
			return nil, err
		}
		return PacketReceived{eventBase: base, PacketSize: size}, nil
	default:
		return Unrecognized{eventBase: base, Category: raw.Category}, nil
	}
}

func decodeMetrics(base eventBase, payload []byte) MetricsUpdated {
	ev := MetricsUpdated{eventBase: base}
	if payload == nil {
		return ev
	}
	if v, dataType, _, err := jsonparser.Get(payload, "smoothed_rtt"); err == nil && dataType == jsonparser.Number {
		if rtt, err := jsonparser.ParseFloat(v); err == nil {
			ev.SmoothedRTTMs = rtt * MicrosToMillis
			ev.HasSmoothedRTT = true
		}
	}
	if n, ok := uintField(payload, "bytes_in_flight"); ok {
		ev.BytesInFlight = n
		ev.HasBytesInFlight = true
	}
	if n, ok := uintField(payload, "cwnd"); ok {
		ev.CongestionWindow = n
		ev.HasCongestionWindow = true
	}
	return ev
}

func requirePacketSize(raw RawEvent) (uint64, error) {
	if raw.Payload != nil {
		if n, ok := uintField(raw.Payload, "header", "packet_size"); ok {
			return n, nil
		}
	}
	return 0, errors.ErrMalformedEvent(raw.TraceIndex, raw.Index, raw.Category,
		"header.packet_size is missing or not a non-negative integer")
}

func uintField(data []byte, keys ...string) (uint64, bool) {
	v, dataType, _, err := jsonparser.Get(data, keys...)
	if err != nil || dataType != jsonparser.Number {
		return 0, false
	}
	return parseUint(v)
}

// parseUint accepts plain integers and integral floats such as 1200.0 or
// 1.2e3, which some encoders emit.
func parseUint(v []byte) (uint64, bool) {
	if n, err := strconv.ParseUint(string(v), 10, 64); err == nil {
		return n, true
	}
	f, err := jsonparser.ParseFloat(v)
	if err != nil || f < 0 || f != math.Trunc(f) || f >= math.MaxUint64 {
		return 0, false
	}
	return uint64(f), true
}
