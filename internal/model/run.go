package model

import "time"

// RunStatus represents the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPublished RunStatus = "published"
)

// RunCounts tallies what a run proposed and what it did with it.
type RunCounts struct {
	Records  int `json:"records"`
	Eligible int `json:"eligible"`
	Warnings int `json:"warnings"`
	Proposed int `json:"proposed"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Changes  int `json:"changes"`
	Appended int `json:"appended"`
}

// RunSummary is the run_summary.json document written into every bundle.
type RunSummary struct {
	RunID       string            `json:"run_id"`
	Version     string            `json:"version"`
	Descriptor  string            `json:"descriptor"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Revision    string            `json:"revision"`
	Counts      RunCounts         `json:"counts"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
}

// Run is the persisted history entry for one pipeline invocation.
type Run struct {
	ID         string      `json:"id"`
	Version    string      `json:"version"`
	Descriptor string      `json:"descriptor"`
	Dir        string      `json:"dir"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
