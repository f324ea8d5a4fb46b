package engine

import (
	"context"

	"github.com/deixis/gdbridge/internal/executor"
	"github.com/deixis/gdbridge/internal/report"
)

// LaunchEditor opens the project in the interactive editor. The call
// resolves when the editor exits or the timeout reclaims it.
func (e *Engine) LaunchEditor(ctx context.Context) *executor.Result {
	e.logger().Debugw("launching editor", "project", e.Config.Project)
	return e.Exec.Execute(ctx, []string{"--editor"}, executor.Options{})
}

// RunProject runs the project's main scene with a window.
func (e *Engine) RunProject(ctx context.Context) *executor.Result {
	return e.Exec.Execute(ctx, nil, executor.Options{})
}

// RunHeadless runs the project without a display server.
func (e *Engine) RunHeadless(ctx context.Context) *executor.Result {
	return e.Exec.Execute(ctx, []string{"--headless"}, executor.Options{})
}

// RunScript runs a named script file headlessly.
func (e *Engine) RunScript(ctx context.Context, path string) *executor.Result {
	e.logger().Debugw("running script", "path", path)
	return e.Exec.Execute(ctx, []string{"--headless", "--script", path}, executor.Options{
		Kind: report.Script,
	})
}

// RunScriptSource runs an ad hoc script body through a staged scratch
// file, which is removed once the run completes.
func (e *Engine) RunScriptSource(ctx context.Context, source string) *executor.Result {
	return e.Exec.ExecuteScript(ctx, []string{"--headless", "--script"}, source, executor.Options{})
}

// Quit asks the running engine instance to exit by starting a headless
// run that quits immediately after startup.
func (e *Engine) Quit(ctx context.Context) *executor.Result {
	return e.Exec.Execute(ctx, []string{"--headless", "--quit"}, executor.Options{
		Kind: report.Query,
	})
}
