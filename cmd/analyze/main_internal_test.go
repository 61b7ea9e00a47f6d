package analyze

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/saveenergy/qlogstat/internal/results"
	"github.com/saveenergy/qlogstat/pkg/analyzer"
	"github.com/saveenergy/qlogstat/pkg/errors"
)

const sampleTrace = `{"traces":[{"title":"server","vantage_point":{"type":"server"},"events":[
	[1000,"recovery","metrics_updated",{"smoothed_rtt":20000,"bytes_in_flight":1200,"cwnd":14720}],
	[2000,"transport","packet_sent",{"header":{"packet_size":1200}}],
	[3000,"transport","packet_received",{"header":{"packet_size":80}}],
	[4000,"recovery","metrics_updated",{"smoothed_rtt":30000,"bytes_in_flight":0}],
	[5000,"recovery","packet_lost",{"header":{"packet_size":1200}}]
]}]}`

func writeTrace(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.qlog")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func runCapture(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, "test", strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseFlagsPositionalPath(t *testing.T) {
	flags, set, _, err := parseFlags([]string{"--json", "client.qlog"}, "test", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if flags.File != "client.qlog" || !set["file"] || !set["json"] {
		t.Fatalf("flags = %+v set = %v", flags, set)
	}
}

func TestParseFlagsShortAlias(t *testing.T) {
	flags, set, _, err := parseFlags([]string{"-f", "a.qlog"}, "test", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if flags.File != "a.qlog" || !set["file"] {
		t.Fatalf("flags = %+v set = %v", flags, set)
	}
}

func TestParseFlagsRejectsExtraPositionalArgs(t *testing.T) {
	_, _, code, err := parseFlags([]string{"a.qlog", "b.qlog"}, "test", &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for extra positional args")
	}
	if code != exitUsage {
		t.Fatalf("exit code = %d, want %d", code, exitUsage)
	}
}

func TestParseFlagsRejectsConflictingPaths(t *testing.T) {
	_, _, code, err := parseFlags([]string{"--file", "a.qlog", "b.qlog"}, "test", &bytes.Buffer{})
	if err == nil || code != exitUsage {
		t.Fatalf("code = %d err = %v, want usage error", code, err)
	}
}

func TestRunVersionAndHelp(t *testing.T) {
	code, out, _ := runCapture(t, "--version")
	if code != exitSuccess || !strings.Contains(out, "qlogstat test") {
		t.Fatalf("version: code = %d out = %q", code, out)
	}
	code, out, _ = runCapture(t, "-h")
	if code != exitSuccess || !strings.Contains(out, "Usage: qlogstat analyze") {
		t.Fatalf("help: code = %d out = %q", code, out)
	}
}

func TestRunPlainWhenNotATerminal(t *testing.T) {
	isolateConfig(t)
	path := writeTrace(t, sampleTrace)

	code, out, errOut := runCapture(t, path)
	if code != exitSuccess {
		t.Fatalf("code = %d stderr = %q", code, errOut)
	}
	for _, want := range []string{
		"source=" + path,
		"traces=1",
		"title=server",
		"vantage_point=server",
		"events=5",
		"total_bytes_sent=1200",
		"total_packets_sent=1",
		"total_bytes_received=80",
		"smoothed_rtt_ms_samples=2",
		"smoothed_rtt_ms_mean=25.000",
		"smoothed_rtt_ms_variance=25.000",
		"bytes_in_flight_samples=2",
		"congestion_window_samples=1",
		"packets_lost=1",
		"bytes_lost=1200",
		"packet_loss_percent=100.00",
		"grade=",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("plain output must not contain escape codes")
	}
}

func TestRunPlainReportsNoData(t *testing.T) {
	isolateConfig(t)
	path := writeTrace(t, `{"traces":[{"events":[[1000,"x","packet_sent",{"header":{"packet_size":10}}]]}]}`)

	code, out, _ := runCapture(t, "--plain", path)
	if code != exitSuccess {
		t.Fatalf("code = %d", code)
	}
	for _, want := range []string{"smoothed_rtt_ms=no data", "bytes_in_flight=no data", "congestion_window=no data"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRunJSON(t *testing.T) {
	isolateConfig(t)
	path := writeTrace(t, sampleTrace)

	code, out, errOut := runCapture(t, "--json", path)
	if code != exitSuccess {
		t.Fatalf("code = %d stderr = %q", code, errOut)
	}
	var result analyzer.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if result.SchemaVersion != analyzer.SchemaVersion || len(result.Traces) != 1 {
		t.Fatalf("result = %+v", result)
	}
	tr := result.Traces[0]
	if tr.Report.SmoothedRTTMs.Count != 2 || tr.Metrics == nil || len(tr.Metrics.RTTSeries) != 2 {
		t.Fatalf("trace = %+v", tr)
	}
	if tr.Metrics.TotalBytesSent != 1200 || tr.Metrics.TotalBytesReceived != 80 {
		t.Fatalf("totals = %d / %d", tr.Metrics.TotalBytesSent, tr.Metrics.TotalBytesReceived)
	}
}

func TestRunMissingFileExitsWithFailure(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "absent.qlog")

	code, _, errOut := runCapture(t, "--plain", path)
	if code != exitFailure {
		t.Fatalf("code = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(errOut, "qlogstat analyze: error:") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestRunJSONErrorCarriesLocation(t *testing.T) {
	isolateConfig(t)
	path := writeTrace(t, `{"traces":[{"events":[
		[1000,"x","packet_sent",{"header":{"packet_size":10}}],
		[2000,"x","packet_lost",{}]
	]}]}`)

	code, out, _ := runCapture(t, "--json", path)
	if code != exitFailure {
		t.Fatalf("code = %d, want %d", code, exitFailure)
	}
	var resp JSONErrorResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON error: %v\n%s", err, out)
	}
	if !resp.Error || resp.Code != errors.ErrCodeMalformedDocument {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.TraceIndex == nil || *resp.TraceIndex != 0 || resp.EventIndex == nil || *resp.EventIndex != 1 {
		t.Fatalf("location = %v / %v", resp.TraceIndex, resp.EventIndex)
	}
	if resp.Category != "packet_lost" {
		t.Fatalf("category = %q", resp.Category)
	}
}

func TestRunJSONErrorForMissingFile(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "absent.qlog")

	code, out, _ := runCapture(t, "--json", path)
	if code != exitFailure {
		t.Fatalf("code = %d", code)
	}
	var resp JSONErrorResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON error: %v", err)
	}
	if resp.Code != errors.ErrCodeNotFound || resp.Path != path {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	isolateConfig(t)
	tests := [][]string{
		{"--json", "--plain", "x.qlog"},
		{"--plot-width", "3", "x.qlog"},
		{"--log-level", "loud", "x.qlog"},
		{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "x.qlog"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			code, _, errOut := runCapture(t, args...)
			if code != exitUsage {
				t.Fatalf("code = %d, want %d (stderr %q)", code, exitUsage, errOut)
			}
		})
	}
}

func TestRunUnknownFlag(t *testing.T) {
	code, _, _ := runCapture(t, "--bogus")
	if code != exitUsage {
		t.Fatalf("code = %d, want %d", code, exitUsage)
	}
}

func TestRunUsesConfigFileLogPath(t *testing.T) {
	isolateConfig(t)
	path := writeTrace(t, sampleTrace)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log_path: "+path+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCapture(t, "--config", cfgPath, "--plain")
	if code != exitSuccess {
		t.Fatalf("code = %d stderr = %q", code, errOut)
	}
	if !strings.Contains(out, "source="+path) {
		t.Fatalf("output = %q", out)
	}
}

func TestRunSaveStoresReports(t *testing.T) {
	isolateConfig(t)
	path := writeTrace(t, sampleTrace)
	dbPath := filepath.Join(t.TempDir(), "history.db")

	code, out, errOut := runCapture(t, "--plain", "--save", "--db", dbPath, path)
	if code != exitSuccess {
		t.Fatalf("code = %d stderr = %q", code, errOut)
	}
	if !strings.Contains(out, "saved_id=") {
		t.Fatalf("output missing saved_id:\n%s", out)
	}

	store, err := results.New(dbPath, 10, 0)
	if err != nil {
		t.Fatalf("results.New: %v", err)
	}
	defer store.Close()
	records, err := store.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].SourcePath != path {
		t.Fatalf("records = %+v", records)
	}
}

func TestInteractiveFormatterNoColor(t *testing.T) {
	a := analyzer.New()
	result, err := a.Analyze(t.Context(), "mem.qlog", []byte(sampleTrace))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var out bytes.Buffer
	f := NewInteractiveFormatter(&out, &bytes.Buffer{}, true, false, 72, 16)
	f.FormatResult(result)

	text := out.String()
	if strings.Contains(text, "\x1b[") {
		t.Error("--no-color output contains escape codes")
	}
	for _, want := range []string{"Trace 0: server (server)", "Smoothed RTT:", "25.000 ms (mean)", "Packet loss:"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q\n%s", want, text)
		}
	}
	if f.Plotted() {
		t.Error("plots were disabled")
	}
}

func TestInteractiveFormatterPlots(t *testing.T) {
	result, err := analyzer.New().Analyze(t.Context(), "mem.qlog", []byte(sampleTrace))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var out bytes.Buffer
	f := NewInteractiveFormatter(&out, &bytes.Buffer{}, true, true, 60, 10)
	f.FormatResult(result)
	if !f.Plotted() {
		t.Fatal("expected charts")
	}
	if !strings.Contains(out.String(), "Smoothed RTT") {
		t.Fatalf("chart titles missing:\n%s", out.String())
	}
}

func TestInteractiveFormatterEmptyDocument(t *testing.T) {
	var out bytes.Buffer
	f := NewInteractiveFormatter(&out, &bytes.Buffer{}, true, true, 72, 16)
	f.FormatResult(&analyzer.Result{SourcePath: "empty.qlog"})
	if !strings.Contains(out.String(), "empty.qlog contains no traces") || f.Plotted() {
		t.Fatalf("output = %q plotted = %v", out.String(), f.Plotted())
	}
}
