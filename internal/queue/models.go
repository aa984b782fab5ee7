package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Status is the transient state of a work item during one run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusProcessing, StatusDone, StatusFailed}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Terminal reports whether the status ends an item's run.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// WorkItem is one unit of pending work: a post to rewrite for a keyword.
type WorkItem struct {
	ID       string `json:"id"`
	Keyword  string `json:"keyword"`
	SEOTitle string `json:"seo_title,omitempty"`
	Position int    `json:"position"`
	Status   Status `json:"status"`
}

// Label returns a short human readable description of the item.
func (w WorkItem) Label() string {
	if w.Keyword == "" {
		return fmt.Sprintf("post %s", w.ID)
	}
	return fmt.Sprintf("post %s (%s)", w.ID, w.Keyword)
}

// Source lists pending work items and records their completion.
type Source interface {
	ListPending(ctx context.Context) ([]WorkItem, error)
	// NextPending returns nil when nothing is pending.
	NextPending(ctx context.Context) (*WorkItem, error)
	MarkProcessed(ctx context.Context, item WorkItem) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// FailureRecorder is implemented by sources that can persist the reason an
// item failed without marking it processed.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, item WorkItem, reason string) error
}

// Record is a persisted queue row as stored by the SQLite backend.
type Record struct {
	WorkItem
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// State derives the display status of a persisted row.
func (r Record) State() Status {
	switch {
	case r.ProcessedAt != nil:
		return StatusDone
	case r.LastError != "":
		return StatusFailed
	default:
		return StatusPending
	}
}

// HealthSummary aggregates queue rows by derived state.
type HealthSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Processed int `json:"processed"`
}

// DatabaseHealth describes diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalItems       int      `json:"total_items"`
	Error            string   `json:"error,omitempty"`
}
