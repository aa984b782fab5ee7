package testsupport

import (
	"context"
	"testing"

	"postforge/internal/config"
	"postforge/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddItem enqueues a work item for tests using the provided store.
func AddItem(t testing.TB, store *queue.Store, postID, keyword string) queue.WorkItem {
	t.Helper()

	item, err := store.Add(context.Background(), postID, keyword, "")
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return item
}
