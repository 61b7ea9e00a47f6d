package analyze

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/saveenergy/qlogstat/internal/plot"
	"github.com/saveenergy/qlogstat/pkg/analyzer"
	"github.com/saveenergy/qlogstat/pkg/errors"
	"github.com/saveenergy/qlogstat/pkg/types"
)

const noData = "no data"

func (f *JSONFormatter) FormatResult(result *analyzer.Result) {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(f.errWriter, "qlogstat analyze: json encode error: %v\n", err)
	}
}

func (f *JSONFormatter) FormatError(err error) {
	resp := JSONErrorResponse{
		SchemaVersion: analyzer.SchemaVersion,
		Error:         true,
		Code:          errors.Code(err),
		Message:       err.Error(),
	}
	if resp.Code == "" {
		resp.Code = "ANALYSIS_FAILED"
	}
	var te *errors.TraceError
	if stderrors.As(err, &te) {
		resp.Message = te.Message
		if te.Cause != nil {
			resp.Message += ": " + te.Cause.Error()
		}
		resp.Path = te.Path
		if te.TraceIndex >= 0 {
			resp.TraceIndex = &te.TraceIndex
		}
		if te.EventIndex >= 0 {
			resp.EventIndex = &te.EventIndex
		}
		resp.Category = te.Category
	}
	if encErr := json.NewEncoder(f.writer).Encode(resp); encErr != nil {
		fmt.Fprintf(f.errWriter, "qlogstat analyze: json encode error: %v\n", encErr)
	}
}

func (f *PlainFormatter) FormatResult(result *analyzer.Result) {
	fmt.Fprintf(f.writer, "source=%s\n", result.SourcePath)
	fmt.Fprintf(f.writer, "traces=%d\n", len(result.Traces))
	for _, tr := range result.Traces {
		r := tr.Report
		fmt.Fprintln(f.writer)
		fmt.Fprintf(f.writer, "trace=%d\n", r.TraceIndex)
		if r.Title != "" {
			fmt.Fprintf(f.writer, "title=%s\n", r.Title)
		}
		if r.VantagePoint != "" {
			fmt.Fprintf(f.writer, "vantage_point=%s\n", r.VantagePoint)
		}
		fmt.Fprintf(f.writer, "events=%d\n", r.EventCount)
		fmt.Fprintf(f.writer, "duration_ms=%.3f\n", r.DurationMs)
		fmt.Fprintf(f.writer, "total_bytes_sent=%d\n", r.Traffic.BytesSent)
		fmt.Fprintf(f.writer, "total_packets_sent=%d\n", r.Traffic.PacketsSent)
		fmt.Fprintf(f.writer, "total_bytes_received=%d\n", r.Traffic.BytesReceived)
		fmt.Fprintf(f.writer, "total_packets_received=%d\n", r.Traffic.PacketsReceived)
		writePlainSummary(f, "smoothed_rtt_ms", r.SmoothedRTTMs)
		writePlainSummary(f, "bytes_in_flight", r.BytesInFlight)
		writePlainSummary(f, "congestion_window", r.CongestionWindow)
		fmt.Fprintf(f.writer, "packets_lost=%d\n", r.Loss.Count)
		fmt.Fprintf(f.writer, "bytes_lost=%d\n", r.Loss.Bytes)
		fmt.Fprintf(f.writer, "packet_loss_percent=%.2f\n", r.Loss.LossPercent)
		if r.Interpretation != nil {
			fmt.Fprintf(f.writer, "grade=%s\n", r.Interpretation.Grade)
			if len(r.Interpretation.Concerns) > 0 {
				fmt.Fprintf(f.writer, "concerns=%s\n", strings.Join(r.Interpretation.Concerns, ","))
			}
		}
		if tr.SavedID != "" {
			fmt.Fprintf(f.writer, "saved_id=%s\n", tr.SavedID)
		}
	}
}

func writePlainSummary(f *PlainFormatter, name string, s types.SeriesSummary) {
	fmt.Fprintf(f.writer, "%s_samples=%d\n", name, s.Count)
	if s.Empty() {
		fmt.Fprintf(f.writer, "%s=%s\n", name, noData)
		return
	}
	fmt.Fprintf(f.writer, "%s_mean=%.3f\n", name, s.Mean)
	fmt.Fprintf(f.writer, "%s_variance=%.3f\n", name, s.Variance)
	fmt.Fprintf(f.writer, "%s_min=%.3f\n", name, s.Min)
	fmt.Fprintf(f.writer, "%s_max=%.3f\n", name, s.Max)
	fmt.Fprintf(f.writer, "%s_p95=%.3f\n", name, s.P95)
	fmt.Fprintf(f.writer, "%s_p99=%.3f\n", name, s.P99)
}

func (f *PlainFormatter) FormatError(err error) {
	fmt.Fprintf(f.errWriter, "qlogstat analyze: error: %v\n", err)
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (f *InteractiveFormatter) render(style lipgloss.Style, s string) string {
	if f.noColor {
		return s
	}
	return style.Render(s)
}

func (f *InteractiveFormatter) gradeStyle(grade string) lipgloss.Style {
	switch grade {
	case "A", "B":
		return goodStyle
	case "C":
		return warnStyle
	default:
		return badStyle
	}
}

func (f *InteractiveFormatter) FormatResult(result *analyzer.Result) {
	f.plotted = false
	if len(result.Traces) == 0 {
		fmt.Fprintf(f.writer, "%s contains no traces\n", result.SourcePath)
		return
	}

	for i, tr := range result.Traces {
		if i > 0 {
			fmt.Fprintln(f.writer)
		}
		f.formatTrace(tr)
	}
}

func (f *InteractiveFormatter) formatTrace(tr analyzer.TraceResult) {
	r := tr.Report
	heading := fmt.Sprintf("Trace %d", r.TraceIndex)
	if r.Title != "" {
		heading += ": " + r.Title
	}
	if r.VantagePoint != "" {
		heading += " (" + r.VantagePoint + ")"
	}
	fmt.Fprintln(f.writer, f.render(headingStyle, heading))

	if in := r.Interpretation; in != nil {
		fmt.Fprintf(f.writer, " %s %s  %s\n", f.render(labelStyle, "Grade:"),
			f.render(f.gradeStyle(in.Grade), in.Grade), in.Summary)
	}
	fmt.Fprintf(f.writer, " %s %s over %.3f ms\n", f.render(labelStyle, "Events:"),
		humanize.Comma(int64(r.EventCount)), r.DurationMs)
	fmt.Fprintf(f.writer, " %s %s in %s packets\n", f.render(labelStyle, "Sent:"),
		humanize.Bytes(r.Traffic.BytesSent), humanize.Comma(int64(r.Traffic.PacketsSent)))
	fmt.Fprintf(f.writer, " %s %s in %s packets\n", f.render(labelStyle, "Received:"),
		humanize.Bytes(r.Traffic.BytesReceived), humanize.Comma(int64(r.Traffic.PacketsReceived)))

	if s := r.SmoothedRTTMs; s.Empty() {
		fmt.Fprintf(f.writer, " %s %s\n", f.render(labelStyle, "Smoothed RTT:"), f.render(dimStyle, noData))
	} else {
		fmt.Fprintf(f.writer, " %s %.3f ms (mean)\n", f.render(labelStyle, "Smoothed RTT:"), s.Mean)
		fmt.Fprintf(f.writer, "  %.3f ms² (variance)\n", s.Variance)
		fmt.Fprintf(f.writer, "  %.3f ms (min)  %.3f ms (max)\n", s.Min, s.Max)
		fmt.Fprintf(f.writer, "  %.3f ms (p95)  %.3f ms (p99)\n", s.P95, s.P99)
		fmt.Fprintf(f.writer, "  %d samples\n", s.Count)
	}
	f.formatGauge("Bytes in flight:", r.BytesInFlight)
	f.formatGauge("Congestion window:", r.CongestionWindow)

	lossStyle := goodStyle
	if r.Loss.LossPercent > 1 {
		lossStyle = badStyle
	}
	fmt.Fprintf(f.writer, " %s %s packets (%s), %.2f%% of sent\n", f.render(lossStyle, "Packet loss:"),
		humanize.Comma(int64(r.Loss.Count)), humanize.Bytes(r.Loss.Bytes), r.Loss.LossPercent)

	if in := r.Interpretation; in != nil && len(in.Concerns) > 0 {
		fmt.Fprintf(f.writer, " %s %s\n", f.render(warnStyle, "Concerns:"), strings.Join(in.Concerns, ", "))
	}
	if tr.SavedID != "" {
		fmt.Fprintf(f.writer, " %s %s\n", f.render(labelStyle, "Saved:"), tr.SavedID)
	}

	if f.plot && tr.Metrics != nil {
		for _, chart := range plot.TraceCharts(tr.Metrics, f.plotWidth, f.plotHeight) {
			fmt.Fprintln(f.writer)
			fmt.Fprintln(f.writer, chart)
		}
		f.plotted = true
	}
}

func (f *InteractiveFormatter) formatGauge(label string, s types.SeriesSummary) {
	if s.Empty() {
		fmt.Fprintf(f.writer, " %s %s\n", f.render(labelStyle, label), f.render(dimStyle, noData))
		return
	}
	fmt.Fprintf(f.writer, " %s %s (mean)  %s (max)  %d samples\n", f.render(labelStyle, label),
		humanize.Bytes(uint64(s.Mean)), humanize.Bytes(uint64(s.Max)), s.Count)
}

func (f *InteractiveFormatter) FormatError(err error) {
	fmt.Fprintf(f.errWriter, "%s %v\n", f.render(badStyle, "qlogstat analyze: error:"), err)
}
