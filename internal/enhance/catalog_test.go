package enhance_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"postforge/internal/enhance"
)

func TestCatalogOverridesKnownStage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	doc := `stages:
  - name: draft-augmentation
    model: custom-draft
    temperature: 0.2
    max_tokens: 1200
    template: |
      Improve {{.Keyword}}: {{.Content}}
  - name: SEO-Finalization
    system: Respond in JSON.
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write catalogue: %v", err)
	}
	catalog, err := enhance.LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	base := enhance.DefaultStages(enhance.Settings{Model: "draft", FinalModel: "final"})
	stages, err := catalog.Apply(base)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stages[0].Params.Model != "custom-draft" || stages[0].Params.Temperature != 0.2 || stages[0].Params.MaxTokens != 1200 {
		t.Fatalf("unexpected draft params %+v", stages[0].Params)
	}
	var buf strings.Builder
	if err := stages[0].Template.Execute(&buf, enhance.PromptData{Keyword: "k", Content: "c"}); err != nil {
		t.Fatalf("execute template: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "Improve k: c" {
		t.Fatalf("unexpected rendered template %q", buf.String())
	}
	if stages[2].Params.System != "Respond in JSON." || stages[2].Params.Model != "final" {
		t.Fatalf("unexpected final params %+v", stages[2].Params)
	}
	if base[0].Params.Model != "draft" {
		t.Fatal("expected base stages to be left untouched")
	}
	if stages[1].Output != enhance.RawHTML || stages[2].Output != enhance.StructuredJSON {
		t.Fatal("expected output kinds to stay fixed")
	}
}

func TestCatalogRejectsInvalidOverrides(t *testing.T) {
	base := enhance.DefaultStages(enhance.Settings{})
	tests := map[string]string{
		"unknown stage":    "stages:\n  - name: Translate\n    model: x\n",
		"final max tokens": "stages:\n  - name: SEO-Finalization\n    max_tokens: 10\n",
		"bad template":     "stages:\n  - name: Draft-Augmentation\n    template: \"{{.Keyword\"\n",
		"bad temperature":  "stages:\n  - name: Draft-Augmentation\n    temperature: 5\n",
		"negative tokens":  "stages:\n  - name: Draft-Augmentation\n    max_tokens: -1\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			catalog, err := enhance.ParseCatalog([]byte(doc))
			if err != nil {
				t.Fatalf("ParseCatalog: %v", err)
			}
			if _, err := catalog.Apply(base); err == nil {
				t.Fatal("expected Apply to fail")
			}
		})
	}
}

func TestParseCatalogRejectsUnknownFields(t *testing.T) {
	if _, err := enhance.ParseCatalog([]byte("stages:\n  - name: Draft-Augmentation\n    prompt: x\n")); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestParseCatalogEmptyDocument(t *testing.T) {
	catalog, err := enhance.ParseCatalog(nil)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if len(catalog.Stages) != 0 {
		t.Fatalf("expected no overrides, got %d", len(catalog.Stages))
	}
}
