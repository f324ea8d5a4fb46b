package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type exportParams struct {
	Preset string `json:"preset,omitempty" jsonschema:"Export preset name as defined in the project's export configuration."`
	Output string `json:"output" jsonschema:"Output path for the exported build."`
	Debug  bool   `json:"debug,omitempty" jsonschema:"Use the debug export template."`
}

func (h *handler) exportHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params exportParams) (*sdkmcp.CallToolResult, any, error) {
	if params.Preset == "" {
		return errorResult("preset is required")
	}
	if params.Output == "" {
		return errorResult("output is required")
	}

	res := h.engine.Export(ctx, params.Preset, params.Output, params.Debug)
	if !res.Success {
		return textResult(formatResult(res))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exported preset %q to %s\n", params.Preset, params.Output)
	fmt.Fprintf(&b, "Run: %s\n", res.RunID)
	return textResult(b.String())
}

type listPresetsParams struct{}

func (h *handler) listPresetsHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ listPresetsParams) (*sdkmcp.CallToolResult, any, error) {
	presets, res := h.engine.ListPresets(ctx)
	if !res.Success {
		return textResult(formatResult(res))
	}
	if len(presets) == 0 {
		return textResult("No export presets are configured.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Export presets (%d):\n", len(presets))
	for _, p := range presets {
		fmt.Fprintf(&b, "  %s\n", p)
	}
	return textResult(b.String())
}

type versionParams struct{}

func (h *handler) versionHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ versionParams) (*sdkmcp.CallToolResult, any, error) {
	version, res := h.engine.Version(ctx)
	if version == "" {
		return textResult(formatResult(res))
	}
	return textResult(fmt.Sprintf("Engine version: %s\n", version))
}
