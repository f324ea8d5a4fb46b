// Package report persists execution records so that callers can re-fetch
// the full output of an earlier run by its run ID, even after the tool
// response that carried it was truncated or discarded.
package report

import "time"

// Kind identifies what an execution record was produced by.
type Kind string

const (
	// Run is a project or headless engine run.
	Run Kind = "run"
	// Script is a script-file or inline-script run.
	Script Kind = "script"
	// Export is an export run.
	Export Kind = "export"
	// Query is a short informational invocation (version, preset listing).
	Query Kind = "query"
)

// Record holds the outcome of one engine execution.
type Record struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Args      []string  `json:"args,omitempty"`
	Success   bool      `json:"success"`
	ExitCode  int       `json:"exit_code"`
	Stdout    string    `json:"stdout,omitempty"`
	Stderr    string    `json:"stderr,omitempty"`
	Error     string    `json:"error,omitempty"`
	Truncated bool      `json:"truncated,omitempty"`
	Duration  int64     `json:"duration_ms"`
	StartedAt time.Time `json:"started_at"`
}

// Store persists and retrieves execution records.
type Store interface {
	Save(rec *Record) error
	Load(runID string) (*Record, error)
}
