// Package analyzer runs the qlog analysis pipeline programmatically. Agents
// and applications can import this package instead of shelling out to the
// CLI.
//
// Usage:
//
//	a := analyzer.New()
//	result, err := a.AnalyzeFile(ctx, "server.qlog")
//	for _, tr := range result.Traces {
//		fmt.Println(tr.Report.Interpretation.Summary)
//	}
package analyzer

import (
	"context"

	"github.com/saveenergy/qlogstat/internal/logging"
	"github.com/saveenergy/qlogstat/internal/metrics"
	"github.com/saveenergy/qlogstat/internal/qlog"
	"github.com/saveenergy/qlogstat/pkg/types"
)

// SchemaVersion is the semantic version of the JSON output schema.
// Bump major on breaking changes; minor on additive changes.
const SchemaVersion = "1.0"

var log = logging.NewLogger("analyzer")

// Saver persists trace reports. *results.Store satisfies it.
type Saver interface {
	Save(sourcePath string, report types.TraceReport) (string, error)
}

// Analyzer loads qlog documents and derives per-trace metrics.
type Analyzer struct {
	saver Saver
}

// Option configures the Analyzer.
type Option func(*Analyzer)

// WithSaver stores every report of a successful analysis.
func WithSaver(s Saver) Option {
	return func(a *Analyzer) { a.saver = s }
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TraceResult pairs the raw series of one trace with its summary.
type TraceResult struct {
	Report  types.TraceReport    `json:"report"`
	Metrics *types.MetricsBundle `json:"metrics"`
	SavedID string               `json:"saved_id,omitempty"`
}

// Result is the outcome of analysing one document.
type Result struct {
	SchemaVersion string        `json:"schema_version"`
	SourcePath    string        `json:"source_path,omitempty"`
	Traces        []TraceResult `json:"traces"`
}

// AnalyzeFile loads path and analyses every trace in it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Result, error) {
	traces, err := qlog.Load(path)
	if err != nil {
		return nil, err
	}
	return a.analyze(ctx, path, traces)
}

// Analyze analyses an in-memory document. sourcePath is only recorded.
func (a *Analyzer) Analyze(ctx context.Context, sourcePath string, data []byte) (*Result, error) {
	traces, err := qlog.Parse(data)
	if err != nil {
		return nil, err
	}
	return a.analyze(ctx, sourcePath, traces)
}

// analyze is all-or-nothing: any failing trace discards every bundle and
// nothing is saved.
func (a *Analyzer) analyze(ctx context.Context, sourcePath string, traces []qlog.Trace) (*Result, error) {
	result := &Result{
		SchemaVersion: SchemaVersion,
		SourcePath:    sourcePath,
		Traces:        make([]TraceResult, 0, len(traces)),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bundles, err := metrics.AggregateAll(traces)
	if err != nil {
		return nil, err
	}
	for _, bundle := range bundles {
		result.Traces = append(result.Traces, TraceResult{
			Report:  metrics.BuildReport(bundle),
			Metrics: bundle,
		})
	}

	if a.saver != nil {
		for i := range result.Traces {
			id, err := a.saver.Save(sourcePath, result.Traces[i].Report)
			if err != nil {
				return nil, err
			}
			result.Traces[i].SavedID = id
		}
		log.Info("reports saved",
			logging.Field{Key: "path", Value: sourcePath},
			logging.Field{Key: "count", Value: len(result.Traces)})
	}
	return result, nil
}
