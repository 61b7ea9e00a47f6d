package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	analyze "github.com/saveenergy/qlogstat/cmd/analyze"
	check "github.com/saveenergy/qlogstat/cmd/check"
	history "github.com/saveenergy/qlogstat/cmd/history"
	mcpcmd "github.com/saveenergy/qlogstat/cmd/mcp"
)

var version = "dev"

var (
	runAnalyze = analyze.Run
	runCheck   = check.Run
	runHistory = history.Run
	runMCP     = mcpcmd.Run
)

func main() {
	os.Exit(run(os.Args[1:], version))
}

func run(args []string, version string) int {
	if len(args) == 0 {
		return runAnalyze(nil, version)
	}

	switch args[0] {
	case "analyze":
		return runAnalyze(args[1:], version)
	case "check":
		return runCheck(args[1:], version)
	case "history":
		return runHistory(args[1:], version)
	case "mcp":
		return runMCP(version)
	case "help", "-h", "--help":
		printUsage()
		return 0
	case "version", "--version":
		fmt.Printf("qlogstat %s\n", version)
		return 0
	default:
		if strings.HasPrefix(args[0], "-") || looksLikePath(args[0]) {
			return runAnalyze(args, version)
		}
		fmt.Fprintf(os.Stderr, "qlogstat: unknown command %q\n\n", args[0])
		printUsage()
		return 2
	}
}

// looksLikePath lets `qlogstat trace.qlog` work without the analyze verb.
func looksLikePath(arg string) bool {
	if strings.ContainsRune(arg, filepath.Separator) || strings.ContainsRune(arg, '/') {
		return true
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".qlog", ".json", ".sqlog":
		return true
	}
	_, err := os.Stat(arg)
	return err == nil
}

func printUsage() {
	fmt.Fprintf(os.Stdout, `Usage: qlogstat <command> [args]

Commands:
  analyze   Summarise a qlog trace (default when no command provided)
  check     Pass/fail grade gate for CI
  history   List reports saved with analyze --save
  mcp       Run as MCP server (stdio transport, for AI agents)

Examples:
  qlogstat
  qlogstat server.qlog
  qlogstat analyze --json -f client.qlog
  qlogstat check --min-grade B server.qlog
  qlogstat history -n 5
  qlogstat mcp
`)
}
