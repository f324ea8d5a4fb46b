package executor

import "time"

// Result holds the outcome of one execution. Exactly one Result is
// produced per spawned process; it is immutable once returned.
type Result struct {
	RunID     string        `json:"run_id"`
	Success   bool          `json:"success"` // exit code was exactly 0
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr,omitempty"`
	Error     string        `json:"error,omitempty"`     // timeout, spawn failure, or stderr text
	ExitCode  int           `json:"exit_code"`           // -1 when no code was observed
	Truncated bool          `json:"truncated,omitempty"` // output exceeded the cap
	Duration  time.Duration `json:"duration"`
}
