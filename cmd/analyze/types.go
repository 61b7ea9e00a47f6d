package analyze

import (
	"io"

	"github.com/saveenergy/qlogstat/pkg/analyzer"
)

type OutputFormatter interface {
	FormatResult(result *analyzer.Result)
	FormatError(err error)
}

type JSONFormatter struct {
	writer    io.Writer
	errWriter io.Writer
}

type PlainFormatter struct {
	writer    io.Writer
	errWriter io.Writer
}

type InteractiveFormatter struct {
	writer     io.Writer
	errWriter  io.Writer
	noColor    bool
	plot       bool
	plotWidth  int
	plotHeight int
	plotted    bool
}

func NewInteractiveFormatter(w, errW io.Writer, noColor, plot bool, plotWidth, plotHeight int) *InteractiveFormatter {
	return &InteractiveFormatter{
		writer:     w,
		errWriter:  errW,
		noColor:    noColor,
		plot:       plot,
		plotWidth:  plotWidth,
		plotHeight: plotHeight,
	}
}

// Plotted reports whether the last FormatResult drew any chart.
func (f *InteractiveFormatter) Plotted() bool {
	return f.plotted
}

// Flags holds what was given on the command line. Only the entries marked
// in the flagsSet map override the config file and environment.
type Flags struct {
	File       string
	ConfigPath string
	JSON       bool
	Plain      bool
	NoColor    bool
	NoPlot     bool
	NoWait     bool
	PlotWidth  int
	PlotHeight int
	Save       bool
	DBPath     string
	LogLevel   string
}

// JSONErrorResponse is the structured error emitted when --json is active.
type JSONErrorResponse struct {
	SchemaVersion string `json:"schema_version"`
	Error         bool   `json:"error"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Path          string `json:"path,omitempty"`
	TraceIndex    *int   `json:"trace_index,omitempty"`
	EventIndex    *int   `json:"event_index,omitempty"`
	Category      string `json:"category,omitempty"`
}
