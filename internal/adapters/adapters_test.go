package adapters_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"postforge/internal/adapters"
	"postforge/internal/cms"
	"postforge/internal/config"
	"postforge/internal/services"
	"postforge/internal/services/llm"
	"postforge/internal/testsupport"
)

func TestConnectBuildsEveryCapability(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	set := adapters.Connect(context.Background(), cfg, nil)
	t.Cleanup(func() { _ = set.Close() })

	if err := set.Ready(); err != nil {
		t.Fatalf("expected all adapters ready, got %v", err)
	}
	status := set.Status()
	if len(status) != 4 {
		t.Fatalf("expected 4 capabilities, got %d", len(status))
	}
	names := make([]string, 0, len(status))
	for _, health := range status {
		names = append(names, health.Name)
		if !health.Ready {
			t.Fatalf("expected %s ready, got %+v", health.Name, health)
		}
	}
	if strings.Join(names, ",") != "queue,documents,archive,generator" {
		t.Fatalf("unexpected capability order %v", names)
	}
	if status[0].Backend != config.QueueSQLite || status[2].Backend != config.ArchiveFilesystem {
		t.Fatalf("unexpected backends %+v", status)
	}
}

func TestConnectMarksMissingCredentialsUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutCredentials())
	set := adapters.Connect(context.Background(), cfg, nil)
	t.Cleanup(func() { _ = set.Close() })

	err := set.Ready()
	if !errors.Is(err, services.ErrAdapterConnection) {
		t.Fatalf("expected adapter connection error, got %v", err)
	}
	if !strings.Contains(err.Error(), "documents") || !strings.Contains(err.Error(), "generator") {
		t.Fatalf("expected unavailable capabilities named, got %v", err)
	}
	if strings.Contains(err.Error(), "queue (") {
		t.Fatalf("queue should be ready, got %v", err)
	}

	if _, err := set.Documents.Fetch(context.Background(), "42"); !errors.Is(err, services.ErrAdapterConnection) {
		t.Fatalf("expected fetch to fail fast, got %v", err)
	}
	if services.Reason(func() error {
		_, err := set.Generator.Generate(context.Background(), "hi", llm.Params{Model: "m"})
		return err
	}()) != services.ReasonAdapterConnection {
		t.Fatal("expected AdapterConnectionError reason from unavailable generator")
	}
}

func TestConnectSheetBackendMissingWorkbook(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSheet(filepath.Join(t.TempDir(), "missing.xlsx")))
	set := adapters.Connect(context.Background(), cfg, nil)
	t.Cleanup(func() { _ = set.Close() })

	status := set.Status()
	if status[0].Ready || status[0].Backend != config.QueueSheet {
		t.Fatalf("expected sheet queue unavailable, got %+v", status[0])
	}
	if _, err := set.Queue.ListPending(context.Background()); !errors.Is(err, services.ErrAdapterConnection) {
		t.Fatalf("expected list to fail fast, got %v", err)
	}
}

func TestNewWrapsProvidedCapabilities(t *testing.T) {
	documents := testsupport.NewDocuments(cms.Document{ID: "42", Content: "<p>x</p>"})
	set := adapters.New(testsupport.NewSource(), documents, testsupport.NewArchive(), nil)
	err := set.Ready()
	if !errors.Is(err, services.ErrAdapterConnection) || !strings.Contains(err.Error(), "generator") {
		t.Fatalf("expected generator unavailable, got %v", err)
	}
	doc, err := set.Documents.Fetch(context.Background(), "42")
	if err != nil || doc.Content != "<p>x</p>" {
		t.Fatalf("expected provided document store, got %+v (%v)", doc, err)
	}

	probed := set.Probe(context.Background())
	for _, health := range probed {
		if health.Name == adapters.NameGenerator && health.Ready {
			t.Fatal("expected generator to stay unavailable after probe")
		}
		if health.Name == adapters.NameDocuments && (!health.Ready || health.Detail != "reachable") {
			t.Fatalf("unexpected documents probe %+v", health)
		}
	}
}
