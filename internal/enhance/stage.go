package enhance

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"postforge/internal/services/llm"
)

// Stage names in chain order.
const (
	StageDraft    = "Draft-Augmentation"
	StageVoiceFAQ = "Voice-and-FAQ-Enrichment"
	StageFinalize = "SEO-Finalization"
)

// OutputKind selects how a stage's reply is decoded.
type OutputKind int

const (
	// RawHTML replies become the next content verbatim.
	RawHTML OutputKind = iota
	// StructuredJSON replies carry content plus meta title and description.
	StructuredJSON
)

func (k OutputKind) String() string {
	switch k {
	case RawHTML:
		return "raw_html"
	case StructuredJSON:
		return "structured_json"
	default:
		return fmt.Sprintf("output_kind(%d)", int(k))
	}
}

// Stage is one immutable step of the enhancement chain.
type Stage struct {
	Name     string
	Template *template.Template
	Params   llm.Params
	Output   OutputKind
}

// PromptData is the template input for every stage prompt.
type PromptData struct {
	Keyword      string
	KeywordTitle string
	SEOTitle     string
	Title        string
	Content      string
	CTAURL       string
}

// Settings carries the model parameters used by DefaultStages.
type Settings struct {
	Model            string
	FinalModel       string
	Temperature      float64
	FinalTemperature float64
	MaxTokens        int
}

// DefaultStages returns the three-stage chain. Draft stages share the draft
// model settings; the finalization stage uses the final model, requests a JSON
// object reply and never sends a token cap.
func DefaultStages(settings Settings) []Stage {
	draft := llm.Params{
		System:      draftSystemPrompt,
		Model:       settings.Model,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	}
	voice := draft
	voice.System = voiceSystemPrompt
	return []Stage{
		{Name: StageDraft, Template: mustTemplate(StageDraft, draftPrompt), Params: draft, Output: RawHTML},
		{Name: StageVoiceFAQ, Template: mustTemplate(StageVoiceFAQ, voicePrompt), Params: voice, Output: RawHTML},
		{
			Name:     StageFinalize,
			Template: mustTemplate(StageFinalize, finalizePrompt),
			Params: llm.Params{
				System:      finalizeSystemPrompt,
				Model:       settings.FinalModel,
				Temperature: settings.FinalTemperature,
				JSON:        true,
			},
			Output: StructuredJSON,
		},
	}
}

// StageNames lists the names of stages in order.
func StageNames(stages []Stage) []string {
	names := make([]string, len(stages))
	for i, stage := range stages {
		names[i] = stage.Name
	}
	return names
}

// Label turns a stage name into the lower-case token used for archive keys.
func Label(stage string) string {
	return strings.ToLower(strings.TrimSpace(stage))
}

func (s Stage) render(data PromptData) (string, error) {
	if s.Template == nil {
		return "", fmt.Errorf("stage %s has no prompt template", s.Name)
	}
	var buf bytes.Buffer
	if err := s.Template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", s.Name, err)
	}
	return buf.String(), nil
}

func mustTemplate(name, text string) *template.Template {
	return template.Must(parseTemplate(name, text))
}

func parseTemplate(name, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=error").Parse(text)
}

// keywordTitle builds a fresh caser per call; cases.Caser keeps state.
func keywordTitle(keyword string) string {
	return cases.Title(language.English).String(strings.TrimSpace(keyword))
}
