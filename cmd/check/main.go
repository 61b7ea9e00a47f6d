// Package check implements the `qlogstat check` subcommand: a pass/fail gate
// for CI that grades every trace in a qlog file and fails below a threshold.
package check

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/saveenergy/qlogstat/pkg/analyzer"
	"github.com/saveenergy/qlogstat/pkg/diagnostic"
	"github.com/saveenergy/qlogstat/pkg/errors"
)

var (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

const defaultMinGrade = "C"

// TraceCheck is the verdict for one trace.
type TraceCheck struct {
	TraceIndex     int                        `json:"trace_index"`
	Title          string                     `json:"title,omitempty"`
	Passed         bool                       `json:"passed"`
	Interpretation *diagnostic.Interpretation `json:"interpretation"`
}

// CheckResult is the structured output of qlogstat check.
type CheckResult struct {
	SchemaVersion string       `json:"schema_version"`
	Status        string       `json:"status"`
	SourcePath    string       `json:"source_path"`
	MinGrade      string       `json:"min_grade"`
	Traces        []TraceCheck `json:"traces"`
}

func Run(args []string, version string) int {
	return run(args, version, os.Stdout, os.Stderr)
}

func run(args []string, version string, stdout, stderr io.Writer) int {
	flagSet := flag.NewFlagSet("qlogstat check", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() { printUsage(stdout) }

	var (
		path     string
		jsonOut  bool
		minGrade string
	)
	flagSet.StringVar(&path, "file", "./server.qlog", "qlog file to check")
	flagSet.StringVar(&path, "f", "./server.qlog", "qlog file to check (short)")
	flagSet.BoolVar(&jsonOut, "json", false, "Output as JSON")
	flagSet.StringVar(&minGrade, "min-grade", defaultMinGrade, "Lowest passing grade (A-F)")
	help := flagSet.Bool("help", false, "Show help")
	flagSet.BoolVar(help, "h", false, "Show help (short)")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitSuccess
		}
		return exitUsage
	}

	if *help {
		printUsage(stdout)
		return exitSuccess
	}

	minGrade = strings.ToUpper(strings.TrimSpace(minGrade))
	if gradeRank(minGrade) < 0 {
		fmt.Fprintf(stderr, "qlogstat check: invalid --min-grade %q (want A-F)\n", minGrade)
		return exitUsage
	}

	rest := flagSet.Args()
	if len(rest) > 1 {
		fmt.Fprintln(stderr, "qlogstat check: too many positional arguments")
		return exitUsage
	}
	if len(rest) == 1 {
		path = rest[0]
	}

	result, err := runCheck(context.Background(), path, minGrade)
	if err != nil {
		if jsonOut {
			errResp := map[string]interface{}{
				"schema_version": analyzer.SchemaVersion,
				"error":          true,
				"code":           errorCode(err),
				"message":        err.Error(),
			}
			if encErr := json.NewEncoder(stdout).Encode(errResp); encErr != nil {
				fmt.Fprintf(stderr, "qlogstat check: json encode error: %v\n", encErr)
			}
		} else {
			fmt.Fprintf(stderr, "qlogstat check: error: %v\n", err)
		}
		return exitFailure
	}

	if jsonOut {
		if encErr := json.NewEncoder(stdout).Encode(result); encErr != nil {
			fmt.Fprintf(stderr, "qlogstat check: json encode error: %v\n", encErr)
			return exitFailure
		}
	} else {
		printHuman(stdout, result)
	}

	if result.Status != "pass" {
		return exitFailure
	}
	return exitSuccess
}

func runCheck(ctx context.Context, path, minGrade string) (*CheckResult, error) {
	analysis, err := analyzer.New().AnalyzeFile(ctx, path)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		SchemaVersion: analyzer.SchemaVersion,
		Status:        "pass",
		SourcePath:    path,
		MinGrade:      minGrade,
		Traces:        make([]TraceCheck, 0, len(analysis.Traces)),
	}
	for _, tr := range analysis.Traces {
		in := tr.Report.Interpretation
		passed := in != nil && gradeRank(in.Grade) <= gradeRank(minGrade)
		if !passed {
			result.Status = "fail"
		}
		result.Traces = append(result.Traces, TraceCheck{
			TraceIndex:     tr.Report.TraceIndex,
			Title:          tr.Report.Title,
			Passed:         passed,
			Interpretation: in,
		})
	}
	return result, nil
}

var gradeOrder = []string{"A", "B", "C", "D", "F"}

// gradeRank orders grades best first; -1 for anything else.
func gradeRank(grade string) int {
	for i, g := range gradeOrder {
		if g == grade {
			return i
		}
	}
	return -1
}

func errorCode(err error) string {
	if code := errors.Code(err); code != "" {
		return code
	}
	return "CHECK_FAILED"
}

func printHuman(w io.Writer, r *CheckResult) {
	for _, tc := range r.Traces {
		verdict := "PASS"
		if !tc.Passed {
			verdict = "FAIL"
		}
		name := fmt.Sprintf("trace %d", tc.TraceIndex)
		if tc.Title != "" {
			name += " (" + tc.Title + ")"
		}
		if tc.Interpretation == nil {
			fmt.Fprintf(w, "%s %s\n", verdict, name)
			continue
		}
		fmt.Fprintf(w, "%s %s: grade %s, %s\n", verdict, name, tc.Interpretation.Grade, tc.Interpretation.Summary)
		if len(tc.Interpretation.Concerns) > 0 {
			fmt.Fprintf(w, "  concerns: %s\n", strings.Join(tc.Interpretation.Concerns, ", "))
		}
	}
	fmt.Fprintf(w, "%s: %d trace(s), minimum grade %s\n", strings.ToUpper(r.Status), len(r.Traces), r.MinGrade)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: qlogstat check [flags] [path]

Grade every trace in a qlog file and fail when any is below --min-grade.

Flags:
  -h, --help              Show help
  -f, --file string       qlog file to check (default: ./server.qlog)
  --json                  Output as JSON
  --min-grade string      Lowest passing grade, A-F (default: C)

Exit codes:
  0   Every trace passed
  1   A trace is below the minimum grade, or the file could not be analysed
  2   Usage error

Examples:
  qlogstat check server.qlog
  qlogstat check --min-grade B --json client.qlog
`)
}
