package archive

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// StageOriginal labels the snapshot of a document before any stage ran.
const StageOriginal = "original"

// Snapshot is an immutable copy of a document's content at one stage.
type Snapshot struct {
	DocumentID string            `json:"documentId"`
	Stage      string            `json:"stage"`
	Content    string            `json:"content"`
	CapturedAt time.Time         `json:"capturedAt"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Entry describes a stored snapshot without its content.
type Entry struct {
	Location   string    `json:"location"`
	DocumentID string    `json:"document_id"`
	Stage      string    `json:"stage"`
	CapturedAt time.Time `json:"captured_at"`
}

// Archive stores snapshots and returns a location handle for each.
type Archive interface {
	Store(ctx context.Context, snap Snapshot) (string, error)
	List(ctx context.Context, documentID string) ([]Entry, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// Token turns a stage name into the lower-case key used in locations.
func Token(stage string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(stage)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash && b.Len() > 0 {
			b.WriteByte('-')
			lastDash = true
		}
	}
	token := strings.TrimSuffix(b.String(), "-")
	if token == "" {
		return "stage"
	}
	return token
}
