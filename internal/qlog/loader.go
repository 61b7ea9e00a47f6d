// Package qlog reads draft-01 style qlog documents, whose events are
// positional arrays, and decodes individual events into typed variants.
package qlog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/buger/jsonparser"
	"github.com/saveenergy/qlogstat/internal/logging"
	"github.com/saveenergy/qlogstat/pkg/errors"
)

// Positions within an encoded event record.
const (
	timeField     = 0
	categoryField = 2
	payloadField  = 3
	minFields     = 4
)

// RawEvent is a positional record with only the fields this tool reads.
// HasTime is false when field 0 was not a number; the aggregation pass
// rejects such events.
type RawEvent struct {
	TraceIndex int
	Index      int
	Time       float64
	HasTime    bool
	Category   string
	Payload    []byte
}

type Trace struct {
	Index        int
	Title        string
	VantagePoint string
	Events       []RawEvent
}

var log = logging.NewLogger("qlog")

// Load reads and parses the document at path.
func Load(path string) ([]Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNotFound(path, err)
		}
		return nil, errors.ErrUnreadable(path, err)
	}

	traces, err := Parse(data)
	if err != nil {
		if te, ok := err.(*errors.TraceError); ok && te.Path == "" {
			te.Path = path
		}
		return nil, err
	}

	log.Debug("loaded trace document",
		logging.Field{Key: "path", Value: path},
		logging.Field{Key: "bytes", Value: len(data)},
		logging.Field{Key: "traces", Value: len(traces)})
	return traces, nil
}

// Parse decodes a whole document held in memory.
func Parse(data []byte) ([]Trace, error) {
	if !json.Valid(data) {
		return nil, errors.ErrMalformed("document is not valid JSON", nil)
	}

	tracesData, dataType, _, err := jsonparser.Get(data, "traces")
	if err != nil || dataType != jsonparser.Array {
		return nil, errors.ErrMalformed("missing top-level \"traces\" array", nil)
	}

	traces := []Trace{}
	var parseErr error
	_, err = jsonparser.ArrayEach(tracesData, func(value []byte, dataType jsonparser.ValueType, _ int, cbErr error) {
		if parseErr != nil {
			return
		}
		if cbErr != nil {
			parseErr = errors.ErrMalformed(fmt.Sprintf("trace %d cannot be decoded", len(traces)), cbErr)
			return
		}
		trace, err := parseTrace(len(traces), value, dataType)
		if err != nil {
			parseErr = err
			return
		}
		traces = append(traces, trace)
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if err != nil {
		return nil, errors.ErrMalformed("traces array cannot be decoded", err)
	}
	return traces, nil
}

func parseTrace(index int, data []byte, dataType jsonparser.ValueType) (Trace, error) {
	trace := Trace{Index: index, Events: []RawEvent{}}
	if dataType != jsonparser.Object {
		return trace, malformedTrace(index, "trace is not an object")
	}

	if title, err := jsonparser.GetString(data, "title"); err == nil {
		trace.Title = title
	}
	if vp, err := jsonparser.GetString(data, "vantage_point", "type"); err == nil {
		trace.VantagePoint = vp
	}

	eventsData, eventsType, _, err := jsonparser.Get(data, "events")
	if err != nil || eventsType != jsonparser.Array {
		return trace, malformedTrace(index, "missing \"events\" array")
	}

	var eventErr error
	_, err = jsonparser.ArrayEach(eventsData, func(value []byte, dataType jsonparser.ValueType, _ int, cbErr error) {
		if eventErr != nil {
			return
		}
		eventIndex := len(trace.Events)
		if cbErr != nil || dataType != jsonparser.Array {
			eventErr = errors.ErrMalformedEvent(index, eventIndex, "", "event is not a positional array")
			return
		}
		ev, err := parseRecord(index, eventIndex, value)
		if err != nil {
			eventErr = err
			return
		}
		trace.Events = append(trace.Events, ev)
	})
	if eventErr != nil {
		return trace, eventErr
	}
	if err != nil {
		return trace, malformedTrace(index, "events array cannot be decoded")
	}
	return trace, nil
}

type field struct {
	value    []byte
	dataType jsonparser.ValueType
}

func parseRecord(traceIndex, eventIndex int, record []byte) (RawEvent, error) {
	ev := RawEvent{TraceIndex: traceIndex, Index: eventIndex}

	fields := make([]field, 0, minFields)
	count := 0
	_, err := jsonparser.ArrayEach(record, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if len(fields) < minFields {
			fields = append(fields, field{value: value, dataType: dataType})
		}
		count++
	})
	if err != nil {
		return ev, errors.ErrMalformedEvent(traceIndex, eventIndex, "", "event record cannot be decoded")
	}
	if count < minFields {
		return ev, errors.ErrMalformedEvent(traceIndex, eventIndex, "",
			fmt.Sprintf("event record has %d fields, need at least %d", count, minFields))
	}

	category := fields[categoryField]
	if category.dataType != jsonparser.String {
		return ev, errors.ErrMalformedEvent(traceIndex, eventIndex, "", "event category is not a string")
	}
	name, err := jsonparser.ParseString(category.value)
	if err != nil {
		return ev, errors.ErrMalformedEvent(traceIndex, eventIndex, "", "event category cannot be decoded")
	}
	ev.Category = name

	if t := fields[timeField]; t.dataType == jsonparser.Number {
		if v, err := jsonparser.ParseFloat(t.value); err == nil {
			ev.Time = v
			ev.HasTime = true
		}
	}

	if p := fields[payloadField]; p.dataType == jsonparser.Object {
		ev.Payload = p.value
	}
	return ev, nil
}

func malformedTrace(index int, msg string) error {
	err := errors.ErrMalformed(msg, nil)
	err.TraceIndex = index
	return err
}
