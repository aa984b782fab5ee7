package testsupport

import (
	"context"
	"fmt"
	"sync"

	"postforge/internal/archive"
	"postforge/internal/cms"
	"postforge/internal/queue"
	"postforge/internal/services"
	"postforge/internal/services/llm"
)

// Source is an in-memory queue.Source that records MarkProcessed calls.
type Source struct {
	mu       sync.Mutex
	items    []queue.WorkItem
	marked   []queue.WorkItem
	failures map[int]string

	ListErr   error
	MarkErr   error
	HealthErr error
}

// NewSource returns a source holding items; positions are assigned when zero.
func NewSource(items ...queue.WorkItem) *Source {
	src := &Source{failures: make(map[int]string)}
	for i, item := range items {
		if item.Position == 0 {
			item.Position = i + 1
		}
		item.Status = queue.StatusPending
		src.items = append(src.items, item)
	}
	return src
}

func (s *Source) ListPending(ctx context.Context) ([]queue.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var pending []queue.WorkItem
	for _, item := range s.items {
		if !s.isMarked(item) {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

func (s *Source) NextPending(ctx context.Context) (*queue.WorkItem, error) {
	pending, err := s.ListPending(ctx)
	if err != nil || len(pending) == 0 {
		return nil, err
	}
	return &pending[0], nil
}

func (s *Source) MarkProcessed(_ context.Context, item queue.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MarkErr != nil {
		return services.Wrap(services.ErrQueueUpdate, "", "mark processed", "", s.MarkErr)
	}
	s.marked = append(s.marked, item)
	return nil
}

func (s *Source) RecordFailure(_ context.Context, item queue.WorkItem, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[item.Position] = reason
	return nil
}

func (s *Source) HealthCheck(context.Context) error { return s.HealthErr }

func (s *Source) Close() error { return nil }

// Marked returns the items passed to MarkProcessed in call order.
func (s *Source) Marked() []queue.WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]queue.WorkItem(nil), s.marked...)
}

// Failure returns the recorded failure reason for position.
func (s *Source) Failure(position int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[position]
}

func (s *Source) isMarked(item queue.WorkItem) bool {
	for _, marked := range s.marked {
		if marked.Position == item.Position {
			return true
		}
	}
	return false
}

// DocumentUpdate is one recorded Update call.
type DocumentUpdate struct {
	ID     string
	Fields cms.Fields
}

// Documents is an in-memory cms.Store.
type Documents struct {
	mu      sync.Mutex
	docs    map[string]cms.Document
	fetches []string
	updates []DocumentUpdate

	UpdateErr error
	HealthErr error
}

// NewDocuments returns a store holding docs keyed by ID.
func NewDocuments(docs ...cms.Document) *Documents {
	store := &Documents{docs: make(map[string]cms.Document)}
	for _, doc := range docs {
		store.docs[doc.ID] = doc
	}
	return store
}

func (d *Documents) Fetch(_ context.Context, id string) (cms.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetches = append(d.fetches, id)
	doc, ok := d.docs[id]
	if !ok {
		return cms.Document{}, services.Wrap(services.ErrDocumentNotFound, "", "fetch post", "post "+id+": status 404", nil)
	}
	return doc, nil
}

func (d *Documents) Update(_ context.Context, id string, fields cms.Fields) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.UpdateErr != nil {
		return services.Wrap(services.ErrDocumentUpdate, "", "update post", "post "+id, d.UpdateErr)
	}
	d.updates = append(d.updates, DocumentUpdate{ID: id, Fields: fields})
	doc := d.docs[id]
	doc.Content = fields.Content
	if fields.MetaTitle != "" {
		doc.MetaTitle = fields.MetaTitle
	}
	if fields.MetaDescription != "" {
		doc.MetaDescription = fields.MetaDescription
	}
	d.docs[id] = doc
	return nil
}

func (d *Documents) HealthCheck(context.Context) error { return d.HealthErr }

// Updates returns the recorded Update calls.
func (d *Documents) Updates() []DocumentUpdate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DocumentUpdate(nil), d.updates...)
}

// Fetches returns the ids passed to Fetch.
func (d *Documents) Fetches() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.fetches...)
}

// Archive is an in-memory archive.Archive that never overwrites.
type Archive struct {
	mu        sync.Mutex
	snapshots []archive.Snapshot
	locations map[string]struct{}

	// FailStage makes Store fail for snapshots of that stage.
	FailStage string
}

// NewArchive returns an empty archive.
func NewArchive() *Archive {
	return &Archive{locations: make(map[string]struct{})}
}

func (a *Archive) Store(_ context.Context, snap archive.Snapshot) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailStage != "" && snap.Stage == a.FailStage {
		return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "bucket unavailable", nil)
	}
	location := fmt.Sprintf("mem:%s/%s-%d", snap.DocumentID, archive.Token(snap.Stage), len(a.snapshots))
	if _, exists := a.locations[location]; exists {
		return "", fmt.Errorf("snapshot %s already exists", location)
	}
	a.locations[location] = struct{}{}
	a.snapshots = append(a.snapshots, snap)
	return location, nil
}

func (a *Archive) List(_ context.Context, documentID string) ([]archive.Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []archive.Entry
	for i, snap := range a.snapshots {
		if snap.DocumentID == documentID {
			out = append(out, archive.Entry{
				Location:   fmt.Sprintf("mem:%s/%s-%d", snap.DocumentID, archive.Token(snap.Stage), i),
				DocumentID: snap.DocumentID,
				Stage:      snap.Stage,
				CapturedAt: snap.CapturedAt,
			})
		}
	}
	return out, nil
}

func (a *Archive) HealthCheck(context.Context) error { return nil }

func (a *Archive) Close() error { return nil }

// Snapshots returns every stored snapshot in call order.
func (a *Archive) Snapshots() []archive.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]archive.Snapshot(nil), a.snapshots...)
}

// Reply is one scripted generator response.
type Reply struct {
	Text         string
	FinishReason string
	Err          error
}

// Generator returns scripted replies in order and records prompts.
type Generator struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
	params  []llm.Params

	HealthErr error
}

// NewGenerator scripts replies in call order.
func NewGenerator(replies ...Reply) *Generator {
	return &Generator{replies: replies}
}

// Text is a Reply that finished normally.
func Text(text string) Reply {
	return Reply{Text: text, FinishReason: llm.FinishStop}
}

// Push appends more scripted replies.
func (g *Generator) Push(replies ...Reply) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, replies...)
}

func (g *Generator) Generate(ctx context.Context, prompt string, params llm.Params) (llm.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.params = append(g.params, params)
	if err := ctx.Err(); err != nil {
		return llm.Generation{}, err
	}
	if len(g.replies) == 0 {
		return llm.Generation{}, fmt.Errorf("generator: no scripted reply for call %d", len(g.prompts))
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	if reply.Err != nil {
		return llm.Generation{}, reply.Err
	}
	return llm.Generation{Text: reply.Text, FinishReason: reply.FinishReason, Model: params.Model}, nil
}

func (g *Generator) HealthCheck(context.Context) error { return g.HealthErr }

// Calls returns the number of Generate calls.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns the prompts passed to Generate.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}
