// Package mcp implements the `qlogstat mcp` subcommand: an MCP (Model Context
// Protocol) server over stdio transport. Agents can spawn this process and
// analyse qlog traces or browse saved reports directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/saveenergy/qlogstat/internal/config"
	"github.com/saveenergy/qlogstat/internal/results"
	"github.com/saveenergy/qlogstat/pkg/analyzer"
	"github.com/saveenergy/qlogstat/pkg/types"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// Run starts the MCP stdio server. Blocks until stdin closes or signal received.
func Run(version string) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "qlogstat mcp: error: %v\n", err)
		return 2
	}
	h := &handlers{cfg: cfg}

	s := server.NewMCPServer(
		"qlogstat",
		version,
		server.WithToolCapabilities(true),
	)
	for _, t := range h.tools() {
		s.AddTool(t.tool, t.handler)
	}

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "qlogstat mcp: error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig() (*config.Config, error) {
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
	return cfg, cfg.Validate()
}

type handlers struct {
	cfg *config.Config
}

// ToolDefinitions lists the tools the server exposes.
func ToolDefinitions() []mcp.Tool {
	h := &handlers{cfg: config.DefaultConfig()}
	defs := make([]mcp.Tool, 0, 3)
	for _, t := range h.tools() {
		defs = append(defs, t.tool)
	}
	return defs
}

type registeredTool struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

func (h *handlers) tools() []registeredTool {
	return []registeredTool{
		{
			tool: mcp.NewTool("analyze_qlog",
				mcp.WithDescription("Analyse a qlog QUIC trace file. Returns per-trace smoothed RTT, bytes in flight and congestion window statistics (mean, variance, p95, p99), packet loss, traffic totals and a grade (A-F) with concerns."),
				mcp.WithString("path",
					mcp.Required(),
					mcp.Description("Path to the .qlog file"),
				),
				mcp.WithBoolean("save",
					mcp.Description("Store the reports in the history database (default: false)"),
				),
			),
			handler: h.handleAnalyze,
		},
		{
			tool: mcp.NewTool("trace_history",
				mcp.WithDescription("List previously saved trace reports, newest first."),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of reports, 1-500 (default: 20)"),
				),
			),
			handler: h.handleHistory,
		},
		{
			tool: mcp.NewTool("trace_report",
				mcp.WithDescription("Fetch one saved trace report by id."),
				mcp.WithString("id",
					mcp.Required(),
					mcp.Description("Report id returned by analyze_qlog or trace_history"),
				),
			),
			handler: h.handleReport,
		},
	}
}

// traceSummary is a report without the raw series, which can be large.
type traceSummary struct {
	types.TraceReport
	SavedID string `json:"saved_id,omitempty"`
}

type analysisSummary struct {
	SchemaVersion string         `json:"schema_version"`
	SourcePath    string         `json:"source_path"`
	Traces        []traceSummary `json:"traces"`
}

func (h *handlers) handleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	var opts []analyzer.Option
	if req.GetBool("save", false) {
		store, err := h.openStore()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Opening history failed: %v", err)), nil
		}
		defer store.Close()
		opts = append(opts, analyzer.WithSaver(store))
	}

	result, err := analyzer.New(opts...).AnalyzeFile(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}

	summary := analysisSummary{
		SchemaVersion: result.SchemaVersion,
		SourcePath:    result.SourcePath,
		Traces:        make([]traceSummary, 0, len(result.Traces)),
	}
	for _, tr := range result.Traces {
		summary.Traces = append(summary.Traces, traceSummary{TraceReport: tr.Report, SavedID: tr.SavedID})
	}
	return jsonResult(summary)
}

func (h *handlers) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultHistoryLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	store, err := h.openStore()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Opening history failed: %v", err)), nil
	}
	defer store.Close()

	records, err := store.List(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Listing history failed: %v", err)), nil
	}
	return jsonResult(records)
}

func (h *handlers) handleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	store, err := h.openStore()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Opening history failed: %v", err)), nil
	}
	defer store.Close()

	record, err := store.Get(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Loading report failed: %v", err)), nil
	}
	if record == nil {
		return mcp.NewToolResultError(fmt.Sprintf("No report with id %q", id)), nil
	}
	return jsonResult(record)
}

func (h *handlers) openStore() (*results.Store, error) {
	return results.New(h.cfg.Database(), h.cfg.MaxStoredResults, h.cfg.RetentionPeriod)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("JSON encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
