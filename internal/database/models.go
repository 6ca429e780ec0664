package database

import (
	"errors"
	"time"
)

// Error types
var (
	ErrRunNotFound = errors.New("run not found")
)

// RunStatus is the lifecycle state of a stitch run
type RunStatus string

const (
	RunStatusRunning    RunStatus = "running"
	RunStatusExhausted  RunStatus = "exhausted"
	RunStatusSwipeLimit RunStatus = "swipe_limit"
	RunStatusMismatch   RunStatus = "mismatch"
	RunStatusFailed     RunStatus = "failed"
)

// Run represents one full-page capture attempt
type Run struct {
	ID           string     `db:"id"`
	Surface      string     `db:"surface"`
	StartedAt    time.Time  `db:"started_at"`
	FinishedAt   *time.Time `db:"finished_at"`
	Status       RunStatus  `db:"status"`
	Iterations   int        `db:"iterations"`
	Width        int        `db:"width"`
	Height       int        `db:"height"`
	ErrorMessage *string    `db:"error_message"`
}

// Duration returns how long the run took, or zero while it is running
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunSummary is the result recorded when a run ends
type RunSummary struct {
	Status     RunStatus
	Iterations int
	Width      int
	Height     int
	Err        error
}

// Artifact is a PNG image stored for a run
type Artifact struct {
	ID        int64     `db:"id"`
	RunID     string    `db:"run_id"`
	Name      string    `db:"name"`
	PNG       []byte    `db:"png"`
	CreatedAt time.Time `db:"created_at"`
}
