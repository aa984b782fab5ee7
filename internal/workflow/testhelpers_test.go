package workflow_test

import (
	"context"
	"sync"
	"testing"

	"postforge/internal/adapters"
	"postforge/internal/cms"
	"postforge/internal/config"
	"postforge/internal/notifications"
	"postforge/internal/queue"
	"postforge/internal/testsupport"
	"postforge/internal/workflow"
)

const finalReply = "```json\n{\"metaTitle\":\"T\",\"metaDescription\":\"D\",\"content\":\"<final>\"}\n```"

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   map[notifications.Event]notifications.Payload
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = make(map[notifications.Event]notifications.Payload)
	}
	s.events = append(s.events, event)
	s.last[event] = payload
	return nil
}

func (s *stubNotifier) count(event notifications.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

type harness struct {
	cfg       *config.Config
	source    *testsupport.Source
	documents *testsupport.Documents
	archive   *testsupport.Archive
	generator *testsupport.Generator
	notifier  *stubNotifier
	manager   *workflow.Manager
}

func newHarness(t *testing.T, items []queue.WorkItem, docs []cms.Document, replies ...testsupport.Reply) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		cfg:       cfg,
		source:    testsupport.NewSource(items...),
		documents: testsupport.NewDocuments(docs...),
		archive:   testsupport.NewArchive(),
		generator: testsupport.NewGenerator(replies...),
		notifier:  &stubNotifier{},
	}
	set := adapters.New(h.source, h.documents, h.archive, h.generator)
	engine, err := workflow.NewEngine(cfg, h.generator, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	h.manager = workflow.NewManagerWithNotifier(cfg, set, engine, nil, h.notifier)
	return h
}

func successReplies() []testsupport.Reply {
	return []testsupport.Reply{
		testsupport.Text("<p>Intro</p><h2>Screener</h2>"),
		testsupport.Text("<p>Intro</p><h2>Screener</h2><h2>FAQ</h2><p>Q?</p>"),
		testsupport.Text(finalReply),
	}
}

func assertInvariant(t *testing.T, result workflow.BatchResult) {
	t.Helper()
	if len(result.SucceededIDs)+len(result.Failed) != result.Total {
		t.Fatalf("succeeded %d + failed %d != total %d", len(result.SucceededIDs), len(result.Failed), result.Total)
	}
}
