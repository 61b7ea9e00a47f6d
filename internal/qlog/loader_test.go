package qlog_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/saveenergy/qlogstat/internal/qlog"
	"github.com/saveenergy/qlogstat/pkg/errors"
)

const sampleDocument = `{
  "qlog_version": "draft-01",
  "traces": [
    {
      "title": "picoquic server",
      "vantage_point": {"type": "server"},
      "event_fields": ["relative_time", "category", "event", "data"],
      "events": [
        [0, "transport", "packet_received", {"header": {"packet_size": 1252}}],
        [1500, "recovery", "metrics_updated", {"smoothed_rtt": 20000, "bytes_in_flight": 1200}, "extra"],
        [2000, "transport", "packet_sent", {"header": {"packet_size": 1232}}]
      ]
    },
    {"events": []}
  ]
}`

func TestParseDecodesPositionalRecords(t *testing.T) {
	traces, err := qlog.Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(traces) != 2 {
		t.Fatalf("len(traces) = %d, want 2", len(traces))
	}

	first := traces[0]
	if first.Title != "picoquic server" || first.VantagePoint != "server" {
		t.Errorf("metadata = %q/%q", first.Title, first.VantagePoint)
	}
	if len(first.Events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(first.Events))
	}

	ev := first.Events[1]
	if ev.Index != 1 || ev.TraceIndex != 0 {
		t.Errorf("position = trace %d event %d", ev.TraceIndex, ev.Index)
	}
	if !ev.HasTime || ev.Time != 1500 {
		t.Errorf("time = %v (has=%v), want 1500", ev.Time, ev.HasTime)
	}
	if ev.Category != "metrics_updated" {
		t.Errorf("category = %q", ev.Category)
	}
	if len(ev.Payload) == 0 {
		t.Error("payload should be kept")
	}

	if traces[1].Index != 1 || len(traces[1].Events) != 0 {
		t.Errorf("second trace = %+v", traces[1])
	}
}

func TestParseKeepsNonNumericTimeForAggregation(t *testing.T) {
	traces, err := qlog.Parse([]byte(`{"traces":[{"events":[[null, "x", "packet_sent", {}]]}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if traces[0].Events[0].HasTime {
		t.Fatal("null time must not be reported as present")
	}
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: `{"traces": [`},
		{name: "missing traces", doc: `{"qlog_version": "draft-01"}`},
		{name: "traces not array", doc: `{"traces": {}}`},
		{name: "top level array", doc: `[1, 2, 3]`},
		{name: "trace not object", doc: `{"traces": [42]}`},
		{name: "missing events", doc: `{"traces": [{"title": "t"}]}`},
		{name: "event not array", doc: `{"traces": [{"events": [{"time": 1}]}]}`},
		{name: "too few fields", doc: `{"traces": [{"events": [[0, "transport", "packet_sent"]]}]}`},
		{name: "category not string", doc: `{"traces": [{"events": [[0, "transport", 7, {}]]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := qlog.Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsMalformed(err) {
				t.Fatalf("expected MALFORMED_DOCUMENT, got %v", err)
			}
		})
	}
}

func TestParseReportsOffendingEventPosition(t *testing.T) {
	doc := `{"traces": [{"events": []}, {"events": [[0, "t", "packet_sent", {}], [1, "t"]]}]}`
	_, err := qlog.Parse([]byte(doc))
	te, ok := err.(*errors.TraceError)
	if !ok {
		t.Fatalf("expected *TraceError, got %T (%v)", err, err)
	}
	if te.TraceIndex != 1 || te.EventIndex != 1 {
		t.Fatalf("position = trace %d event %d, want 1/1", te.TraceIndex, te.EventIndex)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.qlog")
	if err := os.WriteFile(path, []byte(sampleDocument), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	traces, err := qlog.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(traces) != 2 {
		t.Fatalf("len(traces) = %d, want 2", len(traces))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := qlog.Load(filepath.Join(t.TempDir(), "absent.qlog"))
	if !errors.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestLoadUnreadablePath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory read semantics differ on windows")
	}
	_, err := qlog.Load(t.TempDir())
	if !errors.IsUnreadable(err) {
		t.Fatalf("expected UNREADABLE for a directory, got %v", err)
	}
}

func TestLoadMalformedFileCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.qlog")
	if err := os.WriteFile(path, []byte(`{"events": []}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := qlog.Load(path)
	te, ok := err.(*errors.TraceError)
	if !ok || te.Code != errors.ErrCodeMalformedDocument {
		t.Fatalf("expected malformed TraceError, got %v", err)
	}
	if te.Path != path {
		t.Fatalf("path = %q, want %q", te.Path, path)
	}
}
