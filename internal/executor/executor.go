// Package executor launches and supervises engine processes. Each call
// owns one process from spawn to exactly one terminal transition: normal
// exit, forced termination on timeout, or spawn failure. Expected failure
// modes are folded into the Result rather than returned as errors.
package executor

import (
	"context"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deixis/gdbridge/internal/report"
)

// killGrace is how long a timed-out process gets to react to SIGTERM
// before it is killed outright.
const killGrace = 2 * time.Second

// Executor spawns the configured engine binary. Concurrent Execute calls
// on one Executor are independent; the struct itself is never mutated
// after construction.
type Executor struct {
	Bin       string        // engine binary, resolved via PATH if bare
	Project   string        // default working directory
	Timeout   time.Duration // default per-run ceiling
	MaxOutput int           // per-stream output cap in bytes
	Store     report.Store  // optional run history; nil disables saving
	Log       *zap.SugaredLogger
}

// Options shapes a single execution. Zero values fall back to the
// Executor's defaults.
type Options struct {
	Timeout time.Duration // 0 means the Executor default
	Dir     string        // "" means the project root
	Discard bool          // true skips output capture entirely
	Kind    report.Kind   // record kind; "" means report.Run
}

// Execute spawns the engine binary with args and waits for one of: normal
// exit, timeout, or spawn failure. The returned Result is always non-nil;
// it carries the failure instead of an error for all expected modes.
func (e *Executor) Execute(ctx context.Context, args []string, opts Options) *Result {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.Timeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dir := opts.Dir
	if dir == "" {
		dir = e.Project
	}

	runID := uuid.New().String()
	started := time.Now()

	cmd := exec.Command(e.Bin, args...)
	cmd.Dir = dir

	var stdout, stderr *limitBuffer
	if !opts.Discard {
		stdout = newLimitBuffer(e.MaxOutput)
		stderr = newLimitBuffer(e.MaxOutput)
		cmd.Stdout = stdout
		cmd.Stderr = stderr
	}

	if err := cmd.Start(); err != nil {
		// Binary missing, not executable, permission denied. No process
		// and no timer exist on this path.
		e.logger().Debugw("spawn failed", "run", runID, "err", err)
		res := &Result{
			RunID:    runID,
			Success:  false,
			Error:    err.Error(),
			ExitCode: -1,
			Duration: time.Since(started),
		}
		e.save(res, args, opts.Kind, started)
		return res
	}

	e.logger().Debugw("spawned", "run", runID, "pid", cmd.Process.Pid, "args", args)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res *Result
	select {
	case waitErr := <-done:
		res = e.resultFromExit(runID, waitErr)
	case <-timer.C:
		e.logger().Debugw("timed out", "run", runID, "timeout", timeout)
		e.terminate(cmd, done)
		res = &Result{
			RunID:    runID,
			Success:  false,
			Error:    "Process timed out",
			ExitCode: -1,
		}
	case <-ctx.Done():
		e.terminate(cmd, done)
		res = &Result{
			RunID:    runID,
			Success:  false,
			Error:    ctx.Err().Error(),
			ExitCode: -1,
		}
	}

	if stdout != nil {
		res.Stdout = stdout.String()
		res.Stderr = stderr.String()
		res.Truncated = stdout.Truncated() || stderr.Truncated()
	}
	res.Duration = time.Since(started)
	e.save(res, args, opts.Kind, started)
	return res
}

// resultFromExit converts the outcome of cmd.Wait into a Result.
func (e *Executor) resultFromExit(runID string, waitErr error) *Result {
	res := &Result{RunID: runID}
	if waitErr == nil {
		res.Success = true
		res.ExitCode = 0
		return res
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res
	}
	// I/O error while waiting; no exit code to report.
	res.ExitCode = -1
	res.Error = waitErr.Error()
	return res
}

// terminate reclaims a running process: SIGTERM first, SIGKILL after the
// grace window, then wait for the reaper goroutine so the process is never
// leaked. Called at most once per execution.
func (e *Executor) terminate(cmd *exec.Cmd, done <-chan error) {
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(killGrace):
		_ = cmd.Process.Kill()
		<-done
	}
}

// save records the run in the history store, attaching accumulated stderr
// as the error text for non-zero exits.
func (e *Executor) save(res *Result, args []string, kind report.Kind, started time.Time) {
	if res.Error == "" && res.Stderr != "" {
		res.Error = res.Stderr
	}
	if e.Store == nil {
		return
	}
	if kind == "" {
		kind = report.Run
	}
	rec := &report.Record{
		ID:        res.RunID,
		Kind:      kind,
		Args:      args,
		Success:   res.Success,
		ExitCode:  res.ExitCode,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		Error:     res.Error,
		Truncated: res.Truncated,
		Duration:  res.Duration.Milliseconds(),
		StartedAt: started,
	}
	if err := e.Store.Save(rec); err != nil {
		e.logger().Debugw("saving run record", "run", res.RunID, "err", err)
	}
}

func (e *Executor) logger() *zap.SugaredLogger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop().Sugar()
}

// limitBuffer accumulates up to limit bytes and discards the rest. It is
// safe for concurrent use: the process streams write while a timed-out
// Execute reads what was captured so far.
type limitBuffer struct {
	mu        sync.Mutex
	buf       []byte
	limit     int
	truncated bool
}

func newLimitBuffer(limit int) *limitBuffer {
	if limit <= 0 {
		limit = 1 << 20
	}
	return &limitBuffer{limit: limit}
}

func (b *limitBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.limit - len(b.buf)
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Keep what fits but report all bytes as consumed to avoid
		// short-write errors upstream.
		b.buf = append(b.buf, p[:remaining]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *limitBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func (b *limitBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
