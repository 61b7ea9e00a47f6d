package analyzer_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/saveenergy/qlogstat/pkg/analyzer"
	"github.com/saveenergy/qlogstat/pkg/errors"
	"github.com/saveenergy/qlogstat/pkg/types"
)

const twoTraces = `{"traces":[
	{"title":"client","events":[
		[1000,"transport","packet_sent",{"header":{"packet_size":100}}],
		[2000,"transport","packet_sent",{"header":{"packet_size":50}}],
		[3000,"recovery","packet_lost",{"header":{"packet_size":200}}],
		[5000,"recovery","metrics_updated",{"smoothed_rtt":20000}]
	]},
	{"title":"server","events":[
		[0,"transport","packet_received",{"header":{"packet_size":1252}}]
	]}
]}`

type fakeSaver struct {
	saved []types.TraceReport
	err   error
}

func (f *fakeSaver) Save(_ string, r types.TraceReport) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, r)
	return fmt.Sprintf("id-%d", len(f.saved)), nil
}

func TestAnalyze(t *testing.T) {
	res, err := analyzer.New().Analyze(context.Background(), "mem.qlog", []byte(twoTraces))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.SchemaVersion != analyzer.SchemaVersion || res.SourcePath != "mem.qlog" {
		t.Errorf("header = %+v", res)
	}
	if len(res.Traces) != 2 {
		t.Fatalf("len(traces) = %d", len(res.Traces))
	}

	client := res.Traces[0]
	if client.Metrics.TotalBytesSent != 150 || client.Metrics.TotalPacketsSent != 2 {
		t.Errorf("client totals = %+v", client.Metrics)
	}
	if client.Report.Loss.LossPercent != 50 || client.Report.SmoothedRTTMs.Mean != 20 {
		t.Errorf("client report = %+v", client.Report)
	}
	if client.SavedID != "" {
		t.Error("nothing should be saved without a saver")
	}

	server := res.Traces[1]
	if server.Report.Title != "server" || server.Metrics.TotalBytesReceived != 1252 {
		t.Errorf("server = %+v", server)
	}
}

func TestAnalyzeSaves(t *testing.T) {
	saver := &fakeSaver{}
	res, err := analyzer.New(analyzer.WithSaver(saver)).Analyze(context.Background(), "mem.qlog", []byte(twoTraces))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(saver.saved) != 2 || res.Traces[1].SavedID != "id-2" {
		t.Fatalf("saved = %d, ids = %q/%q", len(saver.saved), res.Traces[0].SavedID, res.Traces[1].SavedID)
	}
}

func TestAnalyzeFailureSavesNothing(t *testing.T) {
	saver := &fakeSaver{}
	doc := `{"traces":[
		{"events":[[0,"x","packet_sent",{"header":{"packet_size":1}}]]},
		{"events":[[0,"x","packet_sent",{"header":{}}]]}
	]}`
	res, err := analyzer.New(analyzer.WithSaver(saver)).Analyze(context.Background(), "bad.qlog", []byte(doc))
	if !errors.IsMalformed(err) {
		t.Fatalf("err = %v, want MALFORMED_DOCUMENT", err)
	}
	if res != nil || len(saver.saved) != 0 {
		t.Fatalf("partial output leaked: res=%v saved=%d", res, len(saver.saved))
	}
}

func TestAnalyzeSaverError(t *testing.T) {
	saver := &fakeSaver{err: fmt.Errorf("disk full")}
	if _, err := analyzer.New(analyzer.WithSaver(saver)).Analyze(context.Background(), "m", []byte(twoTraces)); err == nil {
		t.Fatal("expected saver error")
	}
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := analyzer.New().Analyze(ctx, "m", []byte(twoTraces)); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestAnalyzeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.qlog")
	if err := os.WriteFile(path, []byte(twoTraces), 0o600); err != nil {
		t.Fatal(err)
	}
	res, err := analyzer.New().AnalyzeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}
	if res.SourcePath != path || len(res.Traces) != 2 {
		t.Fatalf("res = %+v", res)
	}

	if _, err := analyzer.New().AnalyzeFile(context.Background(), path+".missing"); !errors.IsNotFound(err) {
		t.Fatalf("missing err = %v", err)
	}
}
