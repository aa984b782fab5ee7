package cms

import (
	"context"
	"time"
)

// Document is the transient copy of a post held while one item is processed.
type Document struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Excerpt         string    `json:"excerpt,omitempty"`
	MetaTitle       string    `json:"meta_title,omitempty"`
	MetaDescription string    `json:"meta_description,omitempty"`
	ModifiedAt      time.Time `json:"modified_at"`
	Status          string    `json:"status,omitempty"`
}

// Fields is the write-back payload. Empty meta values are left untouched on
// the remote post.
type Fields struct {
	Content         string
	MetaTitle       string
	MetaDescription string
}

// Store fetches and updates documents by id.
type Store interface {
	Fetch(ctx context.Context, id string) (Document, error)
	Update(ctx context.Context, id string, fields Fields) error
	HealthCheck(ctx context.Context) error
}
