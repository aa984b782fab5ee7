package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"postforge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "SEO-Finalization", "generate", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"SEO-Finalization", "generate", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestReasonMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found", services.Wrap(services.ErrDocumentNotFound, "fetch", "GET", "404", nil), services.ReasonDocumentNotFound},
		{"format", services.Wrap(services.ErrEnhancementFormat, "SEO-Finalization", "decode", "bad json", nil), services.ReasonEnhancementFormat},
		{"validation", services.Wrap(services.ErrEnhancementValidation, "SEO-Finalization", "decode", "missing", nil), services.ReasonEnhancementValidation},
		{"truncated", services.Wrap(services.ErrEnhancementTruncated, "Draft-Augmentation", "generate", "length", nil), services.ReasonEnhancementTruncated},
		{"adapter", fmt.Errorf("queue: %w", services.ErrAdapterConnection), services.ReasonAdapterConnection},
		{"archive", services.Wrap(services.ErrArchive, "original", "store", "", errors.New("disk full")), services.ReasonArchive},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), services.ReasonTimeout},
		{"external", services.Wrap(services.ErrExternalTool, "llm", "generate", "", nil), services.ReasonGeneration},
		{"unknown", errors.New("mystery"), services.ReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Reason(tc.err); got != tc.want {
				t.Fatalf("Reason() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDocumentNotFoundMatchesGenericNotFound(t *testing.T) {
	err := services.Wrap(services.ErrDocumentNotFound, "fetch", "", "", nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound to match %v", err)
	}
}
