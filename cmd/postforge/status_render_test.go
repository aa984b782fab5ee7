package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"postforge/internal/preflight"
	"postforge/internal/workflow"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Queue", statusError, "Not readable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Queue:", "[ERROR] Not readable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Queue", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	results := []preflight.Result{
		{Name: "State directory", Passed: true},
		{Name: "Adapter documents (wordpress)", Passed: false, Detail: "connection refused (service unreachable)"},
	}
	lines := preflightLines(results, false)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[2], "[ERROR] 1 of 2 checks passed") {
		t.Fatalf("expected summary line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "[OK] Ready") {
		t.Fatalf("expected ready line, got %q", lines[3])
	}
	if !strings.Contains(lines[4], "[ERROR] connection refused") {
		t.Fatalf("expected failure detail, got %q", lines[4])
	}
}

func TestRenderBatchResultListsFailures(t *testing.T) {
	out := renderBatchResult(workflow.BatchResult{
		RunID:        "run-1",
		Total:        2,
		SucceededIDs: []string{"7"},
		Failed: []workflow.ItemFailure{
			{ID: "9", Stage: "SEO-Finalization", Reason: "EnhancementFormatError", Message: "no JSON object"},
		},
		Warnings: []string{"post 7 updated but not marked processed: busy"},
	})
	for _, want := range []string{"1 of 2 succeeded", "SEO-Finalization", "EnhancementFormatError: no JSON object", "warning: post 7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
