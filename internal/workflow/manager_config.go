package workflow

import (
	"fmt"
	"log/slog"

	"postforge/internal/config"
	"postforge/internal/enhance"
)

// NewEngine builds the enhancement engine described by cfg: the default
// stage chain with the configured models, optionally overridden by the YAML
// prompt catalogue.
func NewEngine(cfg *config.Config, generator enhance.Generator, logger *slog.Logger) (*enhance.Engine, error) {
	stages := enhance.DefaultStages(enhance.Settings{
		Model:            cfg.LLM.Model,
		FinalModel:       cfg.LLM.FinalModel,
		Temperature:      cfg.LLM.Temperature,
		FinalTemperature: cfg.LLM.FinalTemperature,
		MaxTokens:        cfg.LLM.MaxTokens,
	})
	if path := cfg.Enhance.PromptsPath; path != "" {
		catalog, err := enhance.LoadCatalog(path)
		if err != nil {
			return nil, fmt.Errorf("load prompt catalogue: %w", err)
		}
		stages, err = catalog.Apply(stages)
		if err != nil {
			return nil, fmt.Errorf("apply prompt catalogue %s: %w", path, err)
		}
	}
	return enhance.NewEngine(generator, stages,
		enhance.WithCallTimeout(cfg.CallTimeout()),
		enhance.WithCTAURL(cfg.Enhance.CTAURL),
		enhance.WithLogger(logger),
	)
}
