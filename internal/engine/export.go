package engine

import (
	"context"
	"strings"

	"github.com/deixis/gdbridge/internal/executor"
	"github.com/deixis/gdbridge/internal/report"
)

// Export builds the project with a named export preset. Debug builds use
// the debug export template.
func (e *Engine) Export(ctx context.Context, preset, outputPath string, debug bool) *executor.Result {
	mode := "--export-release"
	if debug {
		mode = "--export-debug"
	}
	e.logger().Debugw("exporting project", "preset", preset, "output", outputPath, "debug", debug)
	return e.Exec.Execute(ctx, []string{"--headless", mode, preset, outputPath}, executor.Options{
		Kind: report.Export,
	})
}

// ListPresets returns the names of the project's export presets, one per
// non-empty stdout line of the listing run. A failed run yields the
// result with no presets; the caller decides how to surface it.
func (e *Engine) ListPresets(ctx context.Context) ([]string, *executor.Result) {
	res := e.Exec.Execute(ctx, []string{"--headless", "--export-list"}, executor.Options{
		Kind: report.Query,
	})
	if !res.Success {
		return nil, res
	}
	var presets []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		presets = append(presets, line)
	}
	return presets, res
}
