// Package history implements the `qlogstat history` subcommand, which lists
// reports saved by `qlogstat analyze --save`.
package history

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/saveenergy/qlogstat/internal/config"
	"github.com/saveenergy/qlogstat/internal/results"
)

var (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

const defaultLimit = 20

// Run executes the history subcommand and returns the process exit code.
func Run(args []string, version string) int {
	return run(args, version, os.Stdout, os.Stderr)
}

func run(args []string, version string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("qlogstat history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stdout) }
	jsonOut := fs.Bool("json", false, "Output records as JSON")
	limit := fs.Int("limit", defaultLimit, "Number of reports to list")
	fs.IntVar(limit, "n", defaultLimit, "Number of reports to list (short)")
	dbPath := fs.String("db", "", "History database path")
	showVersion := fs.Bool("version", false, "Print version")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitSuccess
		}
		return exitUsage
	}
	if *showVersion {
		fmt.Fprintf(stdout, "qlogstat %s\n", version)
		return exitSuccess
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "qlogstat history: error: unexpected arguments: %v\n", fs.Args())
		return exitUsage
	}
	if *limit < 1 {
		fmt.Fprintf(stderr, "qlogstat history: error: --limit must be at least 1, got %d\n", *limit)
		return exitUsage
	}

	cfg, err := loadConfig(*dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "qlogstat history: error: %v\n", err)
		return exitUsage
	}

	store, err := results.New(cfg.Database(), cfg.MaxStoredResults, cfg.RetentionPeriod)
	if err != nil {
		fmt.Fprintf(stderr, "qlogstat history: error: %v\n", err)
		return exitFailure
	}
	defer store.Close()

	records, err := store.List(*limit)
	if err != nil {
		fmt.Fprintf(stderr, "qlogstat history: error: %v\n", err)
		return exitFailure
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			fmt.Fprintf(stderr, "qlogstat history: error: %v\n", err)
			return exitFailure
		}
		return exitSuccess
	}

	if len(records) == 0 {
		fmt.Fprintln(stdout, "No saved reports.")
		return exitSuccess
	}
	fmt.Fprintln(stdout, renderTable(records, time.Now()))
	return exitSuccess
}

func loadConfig(dbPath string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	f, err := config.LoadFile(config.DefaultPath(), false)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFile(f); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, cfg.Validate()
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(records []results.Record, now time.Time) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		grade := "-"
		if r.Report.Interpretation != nil {
			grade = r.Report.Interpretation.Grade
		}
		rtt := "no data"
		if !r.Report.SmoothedRTTMs.Empty() {
			rtt = strconv.FormatFloat(r.Report.SmoothedRTTMs.Mean, 'f', 2, 64) + " ms"
		}
		rows = append(rows, []string{
			r.ID,
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
			r.SourcePath,
			strconv.Itoa(r.Report.TraceIndex),
			grade,
			rtt,
			strconv.FormatFloat(r.Report.Loss.LossPercent, 'f', 2, 64) + "%",
			humanize.Bytes(r.Report.Traffic.BytesSent),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("ID", "SAVED", "SOURCE", "TRACE", "GRADE", "RTT", "LOSS", "SENT").
		Rows(rows...).
		String()
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: qlogstat history [flags]

List trace reports saved with "qlogstat analyze --save", newest first.

Flags:
  --json            Output records as JSON
  -n, --limit int   Number of reports to list (default: 20)
  --db string       History database (default: ./data/qlogstat.db)
  --version         Print version
`)
}
