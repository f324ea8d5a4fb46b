package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/gdbridge/internal/executor"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type runProjectParams struct {
	Editor bool `json:"editor,omitempty" jsonschema:"Open the project in the interactive editor instead of running the main scene."`
}

func (h *handler) runProjectHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params runProjectParams) (*sdkmcp.CallToolResult, any, error) {
	var res *executor.Result
	if params.Editor {
		res = h.engine.LaunchEditor(ctx)
	} else {
		res = h.engine.RunProject(ctx)
	}
	return textResult(formatResult(res))
}

type runHeadlessParams struct{}

func (h *handler) runHeadlessHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ runHeadlessParams) (*sdkmcp.CallToolResult, any, error) {
	return textResult(formatResult(h.engine.RunHeadless(ctx)))
}

type runScriptParams struct {
	Path string `json:"path,omitempty" jsonschema:"Script path, absolute or res:// relative to the project."`
}

func (h *handler) runScriptHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params runScriptParams) (*sdkmcp.CallToolResult, any, error) {
	if params.Path == "" {
		return errorResult("path is required")
	}
	return textResult(formatResult(h.engine.RunScript(ctx, params.Path)))
}

type evalParams struct {
	Source string `json:"source,omitempty" jsonschema:"The script body to execute."`
}

func (h *handler) evalHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params evalParams) (*sdkmcp.CallToolResult, any, error) {
	if params.Source == "" {
		return errorResult("source is required")
	}
	return textResult(formatResult(h.engine.RunScriptSource(ctx, params.Source)))
}

type stopParams struct{}

func (h *handler) stopHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ stopParams) (*sdkmcp.CallToolResult, any, error) {
	return textResult(formatResult(h.engine.Quit(ctx)))
}

// formatResult renders an execution result as tool output.
func formatResult(res *executor.Result) string {
	var b strings.Builder

	if res.Success {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", res.RunID)
	fmt.Fprintf(&b, "Exit code: %d\n", res.ExitCode)

	if !res.Success && res.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", strings.TrimRight(res.Error, "\n"))
	}

	if res.Stdout != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Output:")
		fmt.Fprintln(&b, strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" && res.Stderr != res.Error {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Stderr:")
		fmt.Fprintln(&b, strings.TrimRight(res.Stderr, "\n"))
	}

	if res.Truncated {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Output truncated. Fetch the full log with gd_run_log(run_id=%q).\n", res.RunID)
	}

	return b.String()
}
