package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/deixis/gdbridge/internal/report"
)

// stageScript writes source to a uniquely named scratch file and returns
// its path together with a cleanup function. The uuid suffix keeps paths
// collision-free under concurrent staging.
func (e *Executor) stageScript(source string) (string, func(), error) {
	path := filepath.Join(os.TempDir(), "gdbridge-"+uuid.New().String()+".gd")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", nil, fmt.Errorf("staging script: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil {
			// Never masks the execution result.
			e.logger().Debugw("removing scratch file", "path", path, "err", err)
		}
	}
	return path, cleanup, nil
}

// ExecuteScript runs an ad hoc script body as if it were a file: the
// source is staged to a scratch file, the binary is invoked with prefix
// plus the scratch path, and the file is removed once the run completes,
// success or failure alike. A staging failure short-circuits without
// spawning anything.
func (e *Executor) ExecuteScript(ctx context.Context, prefix []string, source string, opts Options) *Result {
	path, cleanup, err := e.stageScript(source)
	if err != nil {
		return &Result{
			RunID:    uuid.New().String(),
			Success:  false,
			Error:    err.Error(),
			ExitCode: -1,
		}
	}
	defer cleanup()

	if opts.Kind == "" {
		opts.Kind = report.Script
	}
	return e.Execute(ctx, append(append([]string{}, prefix...), path), opts)
}
