package adapters

import (
	"context"

	"postforge/internal/archive"
	"postforge/internal/cms"
	"postforge/internal/queue"
	"postforge/internal/services"
	"postforge/internal/services/llm"
)

type unavailable struct {
	name  string
	cause string
}

func (u unavailable) err(op string) error {
	return services.Wrap(services.ErrAdapterConnection, "", u.name+" "+op, "not initialized: "+u.cause, nil)
}

func (u unavailable) HealthCheck(context.Context) error { return u.err("health") }

func (u unavailable) Close() error { return nil }

type unavailableQueue struct{ unavailable }

func (u unavailableQueue) ListPending(context.Context) ([]queue.WorkItem, error) {
	return nil, u.err("list pending")
}

func (u unavailableQueue) NextPending(context.Context) (*queue.WorkItem, error) {
	return nil, u.err("next pending")
}

func (u unavailableQueue) MarkProcessed(context.Context, queue.WorkItem) error {
	return u.err("mark processed")
}

type unavailableDocuments struct{ unavailable }

func (u unavailableDocuments) Fetch(context.Context, string) (cms.Document, error) {
	return cms.Document{}, u.err("fetch")
}

func (u unavailableDocuments) Update(context.Context, string, cms.Fields) error {
	return u.err("update")
}

type unavailableArchive struct{ unavailable }

func (u unavailableArchive) Store(context.Context, archive.Snapshot) (string, error) {
	return "", u.err("store")
}

func (u unavailableArchive) List(context.Context, string) ([]archive.Entry, error) {
	return nil, u.err("list")
}

type unavailableGenerator struct{ unavailable }

func (u unavailableGenerator) Generate(context.Context, string, llm.Params) (llm.Generation, error) {
	return llm.Generation{}, u.err("generate")
}
