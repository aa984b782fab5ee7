package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"postforge/internal/adapters"
	"postforge/internal/cms"
	"postforge/internal/config"
	"postforge/internal/services"
	"postforge/internal/services/llm"
	"postforge/internal/testsupport"
	"postforge/internal/workflow"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, redacted)
	if strings.Contains(out, env.cfg.CMS.Password) {
		t.Fatalf("expected cms password to be redacted, got:\n%s", out)
	}
}

func TestQueueAddListResetRemove(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "add", "42", "best gaming chair", "--seo-title", "Chairs"}, env.configPath)
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "Queued post 42 (best gaming chair) as item 1")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "best gaming chair")
	requireContains(t, out, "pending")

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "done"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list done: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	if _, _, err := runCLI(t, []string{"queue", "reset"}, env.configPath); err == nil {
		t.Fatal("expected reset without positions to fail")
	}
	out, _, err = runCLI(t, []string{"queue", "reset", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("queue reset: %v", err)
	}
	requireContains(t, out, "Reset 1 item(s)")

	out, _, err = runCLI(t, []string{"queue", "remove", "1", "7"}, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Removed item 1")
	requireContains(t, out, "Item 7 not found")

	if _, _, err := runCLI(t, []string{"queue", "remove", "zero"}, env.configPath); err == nil {
		t.Fatal("expected invalid position to fail")
	}
}

func TestQueueImportFromWorkbook(t *testing.T) {
	env := setupCLITestEnv(t)

	workbook := filepath.Join(t.TempDir(), "keywords.xlsx")
	testsupport.WriteSheet(t, workbook, env.cfg.Queue.SheetName,
		[]string{env.cfg.Queue.KeywordColumn, env.cfg.Queue.SEOTitleColumn, env.cfg.Queue.PostIDColumn, env.cfg.Queue.ProcessedColumn},
		[][]string{
			{"standing desk", "Desks", "7", ""},
			{"monitor arm", "", "8", "Yes"},
			{"desk lamp", "", "9", ""},
		},
	)

	out, _, err := runCLI(t, []string{"queue", "import", workbook}, env.configPath)
	if err != nil {
		t.Fatalf("queue import: %v", err)
	}
	requireContains(t, out, "Imported 2 of 2 pending rows")

	out, _, err = runCLI(t, []string{"queue", "import", workbook}, env.configPath)
	if err != nil {
		t.Fatalf("queue import again: %v", err)
	}
	requireContains(t, out, "Imported 0 of 2 pending rows")
}

func TestRunCommandProcessesQueue(t *testing.T) {
	env := setupCLITestEnv(t, cms.Document{ID: "42", Title: "Chairs", Content: "<p>old</p>"})
	env.generator.Push(
		testsupport.Text("<p>draft</p>"),
		testsupport.Text("<p>draft</p><h2>FAQ</h2>"),
		testsupport.Text(finalReply),
	)
	if _, _, err := runCLI(t, []string{"queue", "add", "42", "gaming chair"}, env.configPath); err != nil {
		t.Fatalf("queue add: %v", err)
	}

	out, _, err := runCLI(t, []string{"run", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var result workflow.BatchResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode run output: %v\n%s", err, out)
	}
	if result.Total != 1 || len(result.SucceededIDs) != 1 || result.SucceededIDs[0] != "42" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := len(env.archive.Snapshots()); got != 4 {
		t.Fatalf("expected 4 snapshots, got %d", got)
	}
	updates := env.documents.Updates()
	if len(updates) != 1 || updates[0].Fields.Content != "<final>" {
		t.Fatalf("unexpected updates: %+v", updates)
	}

	out, _, err = runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, out, "No pending items")
}

func TestRunCommandReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"queue", "add", "404", "missing post"}, env.configPath); err != nil {
		t.Fatalf("queue add: %v", err)
	}

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err == nil {
		t.Fatal("expected run with a failed item to return an error")
	}
	requireContains(t, err.Error(), "1 item(s) failed")
	requireContains(t, out, "404")
	requireContains(t, out, "DocumentNotFound")

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list failed: %v", err)
	}
	requireContains(t, out, "DocumentNotFound")
}

// interruptingGenerator sends SIGTERM to the test process and waits for the
// call context to end.
type interruptingGenerator struct{}

func (interruptingGenerator) Generate(ctx context.Context, _ string, _ llm.Params) (llm.Generation, error) {
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		return llm.Generation{}, err
	}
	select {
	case <-ctx.Done():
		return llm.Generation{}, ctx.Err()
	case <-time.After(5 * time.Second):
		return llm.Generation{}, errors.New("interrupt never reached the stage call")
	}
}

func (interruptingGenerator) HealthCheck(context.Context) error { return nil }

func TestRunCommandStopsOnSIGTERM(t *testing.T) {
	env := setupCLITestEnv(t,
		cms.Document{ID: "1", Content: "<p>a</p>"},
		cms.Document{ID: "2", Content: "<p>b</p>"},
	)
	previous := connectAdapters
	connectAdapters = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) *adapters.Set {
		set := previous(ctx, cfg, logger)
		set.Generator = interruptingGenerator{}
		return set
	}
	t.Cleanup(func() { connectAdapters = previous })

	for _, args := range [][]string{{"queue", "add", "1", "first"}, {"queue", "add", "2", "second"}} {
		if _, _, err := runCLI(t, args, env.configPath); err != nil {
			t.Fatalf("queue add: %v", err)
		}
	}

	out, _, err := runCLI(t, []string{"run", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var result workflow.BatchResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode run output: %v\n%s", err, out)
	}
	if result.Total != 2 || len(result.Failed) != 2 {
		t.Fatalf("expected both items failed after the interrupt, got %+v", result)
	}
	for _, failure := range result.Failed {
		if failure.Reason != services.ReasonCanceled {
			t.Fatalf("expected canceled reason, got %+v", failure)
		}
	}
	if n := len(env.documents.Updates()); n != 0 {
		t.Fatalf("expected no document update, got %d", n)
	}
}

func TestStageCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"stage", "draft-augmentation"}, env.configPath); err == nil {
		t.Fatal("expected missing keyword to fail")
	}

	input := filepath.Join(t.TempDir(), "post.html")
	if err := os.WriteFile(input, []byte("<p>old</p>"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	env.generator.Push(testsupport.Text(finalReply))

	out, _, err := runCLI(t, []string{"stage", "seo-finalization", "--keyword", "chairs", "--file", input, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	requireContains(t, out, `"meta_title": "T"`)
	requireContains(t, out, `"content": "\u003cfinal\u003e"`)
	if prompts := env.generator.Prompts(); len(prompts) != 1 || !strings.Contains(prompts[0], "chairs") {
		t.Fatalf("unexpected prompts: %v", prompts)
	}
}

func TestArchiveListCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"archive", "list", "42"}, env.configPath)
	if err != nil {
		t.Fatalf("archive list: %v", err)
	}
	requireContains(t, out, "No snapshots for document 42")
}

func TestHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"health"}, env.configPath)
	if err != nil {
		t.Fatalf("health: %v\n%s", err, out)
	}
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "[OK]")

	env.documents.HealthErr = os.ErrDeadlineExceeded
	out, _, err = runCLI(t, []string{"health"}, env.configPath)
	if err == nil {
		t.Fatalf("expected failing probe to return an error\n%s", out)
	}
	requireContains(t, out, "[ERROR]")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}
