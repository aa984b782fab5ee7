package workflow

import (
	"errors"
	"time"
)

// ErrBatchInProgress is returned when another run holds the run lock.
var ErrBatchInProgress = errors.New("batch already in progress")

// RunOptions narrows one batch run. Zero values fall back to the [workflow]
// configuration.
type RunOptions struct {
	MaxItems  int    `json:"max_items,omitempty"`
	Selection string `json:"selection,omitempty"`
}

// ItemFailure records why one work item did not complete.
type ItemFailure struct {
	ID      string `json:"id"`
	Stage   string `json:"stage,omitempty"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// BatchResult is the aggregate outcome of one run. Every attempted item
// appears exactly once in SucceededIDs or Failed.
type BatchResult struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Total        int           `json:"total"`
	SucceededIDs []string      `json:"succeeded_ids"`
	Failed       []ItemFailure `json:"failed"`
	Warnings     []string      `json:"warnings"`
}

// Duration is the wall-clock time the run took.
func (r BatchResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedIDs lists the ids of failed items in processing order.
func (r BatchResult) FailedIDs() []string {
	ids := make([]string, len(r.Failed))
	for i, failure := range r.Failed {
		ids[i] = failure.ID
	}
	return ids
}

type itemOutcome struct {
	failure *ItemFailure
	warning string
}
