package engine

import (
	"context"
	"strings"

	"github.com/deixis/gdbridge/internal/executor"
	"github.com/deixis/gdbridge/internal/report"
)

// Version queries the engine binary for its version string. The empty
// string means the query failed; the Result carries the details.
func (e *Engine) Version(ctx context.Context) (string, *executor.Result) {
	res := e.Exec.Execute(ctx, []string{"--version"}, executor.Options{
		Kind: report.Query,
	})
	if !res.Success {
		return "", res
	}
	// First non-empty line; the engine may print startup noise after it.
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line, res
		}
	}
	return "", res
}
