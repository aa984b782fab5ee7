package enhance

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog overrides prompts and model parameters of known stages. Stage order
// and output kinds stay fixed.
type Catalog struct {
	Stages []StageOverride `yaml:"stages"`
}

// StageOverride replaces the non-empty fields of the stage with the same name.
type StageOverride struct {
	Name        string   `yaml:"name"`
	System      string   `yaml:"system"`
	Template    string   `yaml:"template"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

// LoadCatalog reads a YAML prompt catalogue from path.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read prompt catalogue: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML prompt catalogue, rejecting unknown fields.
func ParseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&catalog); err != nil && !errors.Is(err, io.EOF) {
		return Catalog{}, fmt.Errorf("parse prompt catalogue: %w", err)
	}
	return catalog, nil
}

// Apply returns a copy of stages with the catalogue overrides applied.
func (c Catalog) Apply(stages []Stage) ([]Stage, error) {
	out := append([]Stage(nil), stages...)
	index := make(map[string]int, len(out))
	for i, stage := range out {
		index[strings.ToLower(stage.Name)] = i
	}
	for _, override := range c.Stages {
		pos, ok := index[strings.ToLower(strings.TrimSpace(override.Name))]
		if !ok {
			return nil, fmt.Errorf("prompt catalogue: unknown stage %q (have %s)", override.Name, strings.Join(StageNames(stages), ", "))
		}
		stage := out[pos]
		if strings.TrimSpace(override.Template) != "" {
			tmpl, err := parseTemplate(stage.Name, override.Template)
			if err != nil {
				return nil, fmt.Errorf("prompt catalogue: stage %s template: %w", stage.Name, err)
			}
			stage.Template = tmpl
		}
		if system := strings.TrimSpace(override.System); system != "" {
			stage.Params.System = system
		}
		if model := strings.TrimSpace(override.Model); model != "" {
			stage.Params.Model = model
		}
		if override.Temperature != nil {
			if *override.Temperature < 0 || *override.Temperature > 2 {
				return nil, fmt.Errorf("prompt catalogue: stage %s temperature must be between 0 and 2", stage.Name)
			}
			stage.Params.Temperature = *override.Temperature
		}
		if override.MaxTokens != nil {
			if stage.Output == StructuredJSON {
				return nil, fmt.Errorf("prompt catalogue: stage %s does not accept max_tokens", stage.Name)
			}
			if *override.MaxTokens < 0 {
				return nil, fmt.Errorf("prompt catalogue: stage %s max_tokens must be >= 0", stage.Name)
			}
			stage.Params.MaxTokens = *override.MaxTokens
		}
		out[pos] = stage
	}
	return out, nil
}
