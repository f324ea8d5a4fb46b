// Package mcp provides the gdbridge MCP server, registering all tools
// and publishing model instructions.
package mcp

import (
	_ "embed"

	"github.com/deixis/gdbridge"
	"github.com/deixis/gdbridge/internal/engine"
	"github.com/deixis/gdbridge/internal/lsp"
	"github.com/deixis/gdbridge/internal/report"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	engine *engine.Engine
	lsp    *lsp.Client
	store  report.Store
}

// NewServer creates an MCP server with all gdbridge tools registered.
// The engine, language-server client, and run store are shared by all
// tool handlers.
func NewServer(eng *engine.Engine, client *lsp.Client, store report.Store) *sdkmcp.Server {
	h := &handler{
		engine: eng,
		lsp:    client,
		store:  store,
	}

	mcpOpts := &sdkmcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &sdkmcp.ServerCapabilities{
			Tools: &sdkmcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "gdbridge", Version: gdbridge.Version}, mcpOpts)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name: "gd_run_project",
		Description: `Run the project with the engine, or open it in the editor.

The call resolves when the process exits or the timeout reclaims it. Output is
captured and stored; use gd_run_log with the returned run ID for the full log.`,
	}, h.runProjectHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "gd_run_headless",
		Description: "Run the project without a display server and capture its output.",
	}, h.runHeadlessHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "gd_run_script",
		Description: "Run a named script file headlessly and capture its output.",
	}, h.runScriptHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name: "gd_eval",
		Description: `Run an ad hoc script body without creating a project file.

The source is staged to a scratch file, executed headlessly, and the file is
removed afterwards regardless of outcome.`,
	}, h.evalHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "gd_export",
		Description: "Export the project with a named export preset.",
	}, h.exportHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "gd_list_presets",
		Description: "List the project's export preset names.",
	}, h.listPresetsHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "gd_version",
		Description: "Report the engine binary's version string.",
	}, h.versionHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "gd_stop",
		Description: "Ask the engine to start headlessly and quit immediately, confirming the binary and project are runnable.",
	}, h.stopHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name: "gd_diagnostics",
		Description: `Validate a script file through the engine's language server.

Returns errors and warnings with 1-based line/column numbers. Reports nothing
when the language server is not reachable (start the editor to enable it).`,
	}, h.diagnosticsHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "gd_complete",
		Description: "Completion suggestions at a 0-based line/column in a script file. Requires the editor's language server.",
	}, h.completeHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "gd_hover",
		Description: "Hover documentation at a 0-based line/column in a script file. Requires the editor's language server.",
	}, h.hoverHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "gd_definition",
		Description: "Definition sites for the symbol at a 0-based line/column in a script file. Requires the editor's language server.",
	}, h.definitionHandler)

	sdkmcp.AddTool(s, &sdkmcp.Tool{
		Name:        "gd_run_log",
		Description: "Fetch the stored output of an earlier run by its run ID, including output that was truncated in the tool response.",
	}, h.runLogHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*sdkmcp.CallToolResult, any, error) {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*sdkmcp.CallToolResult, any, error) {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
