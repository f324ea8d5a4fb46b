package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type runLogParams struct {
	RunID string `json:"run_id" jsonschema:"The run ID from an earlier tool result."`
}

func (h *handler) runLogHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params runLogParams) (*sdkmcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	rec, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s)\n", rec.ID, rec.Kind)
	if rec.Success {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Exit code: %d\n", rec.ExitCode)
	if len(rec.Args) > 0 {
		fmt.Fprintf(&b, "Args: %s\n", strings.Join(rec.Args, " "))
	}
	fmt.Fprintf(&b, "Duration: %dms\n", rec.Duration)
	if rec.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", strings.TrimRight(rec.Error, "\n"))
	}
	if rec.Stdout != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Output:")
		fmt.Fprintln(&b, strings.TrimRight(rec.Stdout, "\n"))
	}
	if rec.Stderr != "" && rec.Stderr != rec.Error {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Stderr:")
		fmt.Fprintln(&b, strings.TrimRight(rec.Stderr, "\n"))
	}
	if rec.Truncated {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Note: output hit the capture cap; the tail was discarded at run time.")
	}
	return textResult(b.String())
}
