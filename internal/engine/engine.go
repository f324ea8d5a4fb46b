// Package engine provides the derived operations on top of the process
// executor: project runs, script runs, exports, and informational
// queries. Each operation shapes a fixed argument template and interprets
// the execution result; no state is carried between calls.
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/deixis/gdbridge/internal/config"
	"github.com/deixis/gdbridge/internal/executor"
)

// ProcessExecutor spawns the engine binary. Implemented by
// executor.Executor.
type ProcessExecutor interface {
	Execute(ctx context.Context, args []string, opts executor.Options) *executor.Result
	ExecuteScript(ctx context.Context, prefix []string, source string, opts executor.Options) *executor.Result
}

// Engine holds shared dependencies for all derived operations.
type Engine struct {
	Config *config.Config
	Exec   ProcessExecutor
	Log    *zap.SugaredLogger
}

func (e *Engine) logger() *zap.SugaredLogger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop().Sugar()
}
