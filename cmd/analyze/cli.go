package analyze

import (
	"flag"
	"fmt"
	"io"

	"github.com/saveenergy/qlogstat/internal/config"
)

func parseFlags(args []string, version string, stdout io.Writer) (*Flags, map[string]bool, int, error) {
	flags := &Flags{}
	flagsSet := make(map[string]bool)

	flagSet := flag.NewFlagSet("qlogstat analyze", flag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.Usage = func() { printUsage(stdout) }
	flagSet.StringVar(&flags.File, "file", "", "qlog file to analyse")
	flagSet.StringVar(&flags.File, "f", "", "qlog file to analyse (short)")
	flagSet.StringVar(&flags.ConfigPath, "config", "", "Config file path")
	flagSet.BoolVar(&flags.JSON, "json", false, "Output results as JSON")
	flagSet.BoolVar(&flags.Plain, "plain", false, "Plain key=value output")
	flagSet.BoolVar(&flags.NoColor, "no-color", false, "Disable color output")
	flagSet.BoolVar(&flags.NoPlot, "no-plot", false, "Skip terminal charts")
	flagSet.BoolVar(&flags.NoWait, "no-wait", false, "Do not wait for Enter after charts")
	flagSet.IntVar(&flags.PlotWidth, "plot-width", 0, "Chart width in columns")
	flagSet.IntVar(&flags.PlotHeight, "plot-height", 0, "Chart height in rows")
	flagSet.BoolVar(&flags.Save, "save", false, "Save reports to the history database")
	flagSet.StringVar(&flags.DBPath, "db", "", "History database path")
	flagSet.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	versionFlag := flagSet.Bool("version", false, "Print version")
	help := flagSet.Bool("help", false, "Show help")
	flagSet.BoolVar(help, "h", false, "Show help (short)")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, nil, exitSuccess, nil
		}
		return nil, nil, exitUsage, err
	}

	flagSet.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
		switch f.Name {
		case "f":
			flagsSet["file"] = true
		case "h":
			flagsSet["help"] = true
		}
	})

	if *versionFlag {
		fmt.Fprintf(stdout, "qlogstat %s\n", version)
		return nil, nil, exitSuccess, nil
	}

	if *help {
		printUsage(stdout)
		return nil, nil, exitSuccess, nil
	}

	rest := flagSet.Args()
	if len(rest) > 1 {
		return nil, nil, exitUsage, fmt.Errorf("too many positional arguments: %v", rest)
	}
	if len(rest) == 1 {
		if flagsSet["file"] && flags.File != rest[0] {
			return nil, nil, exitUsage, fmt.Errorf("both --file %q and positional path %q given", flags.File, rest[0])
		}
		flags.File = rest[0]
		flagsSet["file"] = true
	}

	return flags, flagsSet, 0, nil
}

// loadConfig layers defaults, the config file, the environment and flags,
// in that order, then validates the result.
func loadConfig(flags *Flags, flagsSet map[string]bool) (*config.Config, error) {
	cfg := config.DefaultConfig()

	path, required := config.DefaultPath(), false
	if flagsSet["config"] {
		path, required = flags.ConfigPath, true
	}
	file, err := config.LoadFile(path, required)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFile(file); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	mergeFlags(cfg, flags, flagsSet)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFlags(cfg *config.Config, flags *Flags, flagsSet map[string]bool) {
	if flagsSet["file"] && flags.File != "" {
		cfg.LogPath = flags.File
	}
	// An explicit format flag overrides the other format from config, but
	// --json with --plain is left for Validate to reject.
	if flagsSet["json"] {
		cfg.JSON = flags.JSON
		if flags.JSON && !flags.Plain {
			cfg.Plain = false
		}
	}
	if flagsSet["plain"] {
		cfg.Plain = flags.Plain
		if flags.Plain && !flags.JSON {
			cfg.JSON = false
		}
	}
	if flagsSet["no-color"] {
		cfg.NoColor = flags.NoColor
	}
	if flagsSet["no-plot"] {
		cfg.Plot = !flags.NoPlot
	}
	if flagsSet["no-wait"] {
		cfg.NoWait = flags.NoWait
	}
	if flagsSet["plot-width"] {
		cfg.PlotWidth = flags.PlotWidth
	}
	if flagsSet["plot-height"] {
		cfg.PlotHeight = flags.PlotHeight
	}
	if flagsSet["save"] {
		cfg.Save = flags.Save
	}
	if flagsSet["db"] && flags.DBPath != "" {
		cfg.DBPath = flags.DBPath
	}
	if flagsSet["log-level"] {
		cfg.LogLevel = flags.LogLevel
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: qlogstat analyze [flags] [path]

Analyse a qlog trace: smoothed RTT, bytes in flight, congestion window,
packet loss and traffic totals for every trace in the document.

Flags:
  -h, --help              Show help
  --version               Print version
  -f, --file string       qlog file to analyse (default: ./server.qlog)
  --config string         Config file (default: ~/.config/qlogstat/config.yaml)
  --json                  Output results as JSON
  --plain                 Plain key=value output
  --no-color              Disable color output
  --no-plot               Skip terminal charts
  --no-wait               Do not wait for Enter after charts
  --plot-width int        Chart width in columns (20-400) (default: 72)
  --plot-height int       Chart height in rows (4-200) (default: 16)
  --save                  Save reports to the history database
  --db string             History database (default: ./data/qlogstat.db)
  --log-level string      Log level: debug, info, warn, error (default: info)

Environment:
  QLOGSTAT_LOG_PATH, QLOGSTAT_PLOT, QLOGSTAT_PLOT_WIDTH, QLOGSTAT_PLOT_HEIGHT,
  QLOGSTAT_SAVE, QLOGSTAT_DATA_DIR, QLOGSTAT_DB, QLOGSTAT_MAX_STORED_RESULTS,
  QLOGSTAT_RETENTION, QLOGSTAT_LOG_LEVEL
  NO_COLOR                Disable colors (standard convention)

Exit codes:
  0   Success
  1   The trace could not be loaded or analysed
  2   Usage or configuration error

Examples:
  qlogstat                                 # Analyse ./server.qlog
  qlogstat analyze client.qlog             # Analyse a specific trace
  qlogstat analyze --json -f server.qlog   # JSON output for agents
  qlogstat analyze --save --no-plot trace.qlog
`)
}
