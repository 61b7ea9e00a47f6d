// Package analyze implements the `qlogstat analyze` subcommand: load a qlog
// document, aggregate every trace and print the summaries.
package analyze

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/saveenergy/qlogstat/internal/config"
	"github.com/saveenergy/qlogstat/internal/logging"
	"github.com/saveenergy/qlogstat/internal/results"
	"github.com/saveenergy/qlogstat/pkg/analyzer"
)

var (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

// Run executes the analyze subcommand and returns the process exit code.
func Run(args []string, version string) int {
	return run(args, version, os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, version string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags, flagsSet, code, err := parseFlags(args, version, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "qlogstat analyze: error: %v\n", err)
		return code
	}
	if flags == nil {
		return code
	}

	cfg, err := loadConfig(flags, flagsSet)
	if err != nil {
		fmt.Fprintf(stderr, "qlogstat analyze: error: %v\n", err)
		return exitUsage
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.SetLevel(level)

	if cfg.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if !cfg.JSON && !cfg.Plain && !isTerminal(stdout) {
		cfg.Plain = true
	}

	formatter := createFormatter(cfg, stdout, stderr)

	var opts []analyzer.Option
	if cfg.Save {
		store, err := results.New(cfg.Database(), cfg.MaxStoredResults, cfg.RetentionPeriod)
		if err != nil {
			formatter.FormatError(fmt.Errorf("open history: %w", err))
			return exitFailure
		}
		defer store.Close()
		opts = append(opts, analyzer.WithSaver(store))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Debug("analyzing", logging.Field{Key: "path", Value: cfg.LogPath})
	result, err := analyzer.New(opts...).AnalyzeFile(ctx, cfg.LogPath)
	if err != nil {
		formatter.FormatError(err)
		return exitFailure
	}
	formatter.FormatResult(result)

	if f, ok := formatter.(*InteractiveFormatter); ok && f.Plotted() && !cfg.NoWait && isTerminal(stdin) {
		waitForEnter(stdin, stdout)
	}
	return exitSuccess
}

func createFormatter(cfg *config.Config, stdout, stderr io.Writer) OutputFormatter {
	switch {
	case cfg.JSON:
		return &JSONFormatter{writer: stdout, errWriter: stderr}
	case cfg.Plain:
		return &PlainFormatter{writer: stdout, errWriter: stderr}
	default:
		return NewInteractiveFormatter(stdout, stderr, cfg.NoColor, cfg.Plot, cfg.PlotWidth, cfg.PlotHeight)
	}
}

type fdHolder interface {
	Fd() uintptr
}

func isTerminal(v any) bool {
	f, ok := v.(fdHolder)
	return ok && term.IsTerminal(int(f.Fd()))
}

func waitForEnter(stdin io.Reader, stdout io.Writer) {
	fmt.Fprint(stdout, "\nPress Enter to exit...")
	_, _ = bufio.NewReader(stdin).ReadString('\n')
}
