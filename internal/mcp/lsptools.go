package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/gdbridge/internal/lsp"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type diagnosticsParams struct {
	Path string `json:"path" jsonschema:"Absolute path to the script file to validate."`
}

func (h *handler) diagnosticsHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params diagnosticsParams) (*sdkmcp.CallToolResult, any, error) {
	if params.Path == "" {
		return errorResult("path is required")
	}

	errs, warns := h.lsp.Diagnostics(ctx, params.Path)
	if len(errs) == 0 && len(warns) == 0 {
		return textResult(fmt.Sprintf("No diagnostics reported for %s.", params.Path))
	}

	var b strings.Builder
	if len(errs) > 0 {
		fmt.Fprintf(&b, "Errors (%d):\n", len(errs))
		for _, d := range errs {
			fmt.Fprintf(&b, "  %s:%d:%d: %s\n", params.Path, d.Line, d.Column, d.Message)
		}
	}
	if len(warns) > 0 {
		if len(errs) > 0 {
			fmt.Fprintln(&b)
		}
		fmt.Fprintf(&b, "Warnings (%d):\n", len(warns))
		for _, d := range warns {
			fmt.Fprintf(&b, "  %s:%d:%d: %s\n", params.Path, d.Line, d.Column, d.Message)
		}
	}
	return textResult(b.String())
}

type positionToolParams struct {
	Path   string `json:"path" jsonschema:"Absolute path to the script file."`
	Line   int    `json:"line" jsonschema:"0-based line number."`
	Column int    `json:"column" jsonschema:"0-based column number."`
}

func (p *positionToolParams) validate() string {
	if p.Path == "" {
		return "path is required"
	}
	if p.Line < 0 || p.Column < 0 {
		return "line and column must be >= 0"
	}
	return ""
}

func (h *handler) completeHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params positionToolParams) (*sdkmcp.CallToolResult, any, error) {
	if msg := params.validate(); msg != "" {
		return errorResult(msg)
	}

	items := h.lsp.Completions(ctx, params.Path, params.Line, params.Column)
	if len(items) == 0 {
		return textResult("No completions available at this position.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Completions (%d):\n", len(items))
	for _, it := range items {
		if it.Detail != "" {
			fmt.Fprintf(&b, "  %s — %s\n", it.Label, it.Detail)
		} else {
			fmt.Fprintf(&b, "  %s\n", it.Label)
		}
	}
	return textResult(b.String())
}

func (h *handler) hoverHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params positionToolParams) (*sdkmcp.CallToolResult, any, error) {
	if msg := params.validate(); msg != "" {
		return errorResult(msg)
	}

	text := h.lsp.Hover(ctx, params.Path, params.Line, params.Column)
	if text == "" {
		return textResult("No hover information at this position.")
	}
	return textResult(text)
}

func (h *handler) definitionHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params positionToolParams) (*sdkmcp.CallToolResult, any, error) {
	if msg := params.validate(); msg != "" {
		return errorResult(msg)
	}

	locs := h.lsp.Definitions(ctx, params.Path, params.Line, params.Column)
	if len(locs) == 0 {
		return textResult("No definition found at this position.")
	}
	return textResult(formatLocations(locs))
}

func formatLocations(locs []lsp.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Definitions (%d):\n", len(locs))
	for _, l := range locs {
		fmt.Fprintf(&b, "  %s:%d:%d\n", l.Path, l.Line, l.Column)
	}
	return b.String()
}
