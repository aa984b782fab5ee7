package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"postforge/internal/logging"
	"postforge/internal/services"
	"postforge/internal/services/llm"
)

// Generator is the text-generation capability used by every stage.
type Generator interface {
	Generate(ctx context.Context, prompt string, params llm.Params) (llm.Generation, error)
}

// Input is the document and keyword the chain rewrites.
type Input struct {
	DocumentID string
	Title      string
	Content    string
	Keyword    string
	SEOTitle   string
}

// StageOutput is the decoded result of one successful stage.
type StageOutput struct {
	Stage           string        `json:"stage"`
	Index           int           `json:"index"`
	Content         string        `json:"content"`
	MetaTitle       string        `json:"meta_title,omitempty"`
	MetaDescription string        `json:"meta_description,omitempty"`
	FinishReason    string        `json:"finish_reason,omitempty"`
	Model           string        `json:"model,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// Result is the enhanced document produced by a complete chain.
type Result struct {
	Content         string
	MetaTitle       string
	MetaDescription string
	Stages          []StageOutput
}

// Observer is invoked after each successful stage and before the next one
// starts. Returning an error aborts the chain and attributes the failure to
// the stage just completed.
type Observer func(ctx context.Context, out StageOutput) error

// StageError reports the stage at which the chain stopped.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage extracts the stage name from err when it came from the chain.
func FailedStage(err error) (string, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}

// Engine runs the fixed stage chain against documents.
type Engine struct {
	generator   Generator
	stages      []Stage
	ctaURL      string
	callTimeout time.Duration
	logger      *slog.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithCallTimeout bounds each generation request.
func WithCallTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		e.callTimeout = timeout
	}
}

// WithCTAURL sets the screening tool link rendered into prompts.
func WithCTAURL(url string) EngineOption {
	return func(e *Engine) {
		e.ctaURL = strings.TrimSpace(url)
	}
}

// WithLogger attaches a logger for stage-level debug output.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine constructs an engine over the provided stages, which must be
// non-empty and end with the single StructuredJSON stage.
func NewEngine(generator Generator, stages []Stage, opts ...EngineOption) (*Engine, error) {
	if generator == nil {
		return nil, errors.New("enhance: generator required")
	}
	if len(stages) == 0 {
		return nil, errors.New("enhance: at least one stage required")
	}
	seen := make(map[string]struct{}, len(stages))
	for i, stage := range stages {
		if strings.TrimSpace(stage.Name) == "" {
			return nil, fmt.Errorf("enhance: stage %d has no name", i)
		}
		if _, dup := seen[stage.Name]; dup {
			return nil, fmt.Errorf("enhance: duplicate stage %q", stage.Name)
		}
		seen[stage.Name] = struct{}{}
		if stage.Template == nil {
			return nil, fmt.Errorf("enhance: stage %q has no template", stage.Name)
		}
		last := i == len(stages)-1
		if stage.Output == StructuredJSON && !last {
			return nil, fmt.Errorf("enhance: structured stage %q must be last", stage.Name)
		}
		if last && stage.Output != StructuredJSON {
			return nil, fmt.Errorf("enhance: final stage %q must produce structured output", stage.Name)
		}
	}
	engine := &Engine{
		generator: generator,
		stages:    append([]Stage(nil), stages...),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	if engine.logger == nil {
		engine.logger = logging.NewNop()
	}
	engine.logger = logging.NewComponentLogger(engine.logger, "enhance")
	return engine, nil
}

// Stages returns the configured stage names in order.
func (e *Engine) Stages() []string {
	return StageNames(e.stages)
}

// Enhance folds the stage chain over in.Content. The first failing stage
// aborts the chain with a *StageError; no partial result is returned.
func (e *Engine) Enhance(ctx context.Context, in Input, observe Observer) (Result, error) {
	if strings.TrimSpace(in.Keyword) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "", "enhance", "keyword required", nil)
	}
	data := e.promptData(in)
	outputs := make([]StageOutput, 0, len(e.stages))
	for idx, stage := range e.stages {
		if err := ctx.Err(); err != nil {
			return Result{}, &StageError{Stage: stage.Name, Err: err}
		}
		out, err := e.runStage(ctx, idx, stage, data)
		if err != nil {
			return Result{}, &StageError{Stage: stage.Name, Err: err}
		}
		if observe != nil {
			if err := observe(ctx, out); err != nil {
				return Result{}, &StageError{Stage: stage.Name, Err: err}
			}
		}
		outputs = append(outputs, out)
		data.Content = out.Content
	}
	final := outputs[len(outputs)-1]
	return Result{
		Content:         final.Content,
		MetaTitle:       final.MetaTitle,
		MetaDescription: final.MetaDescription,
		Stages:          outputs,
	}, nil
}

// RunStage executes a single named stage without observers. It backs the
// debug endpoint and the CLI stage command.
func (e *Engine) RunStage(ctx context.Context, name string, in Input) (StageOutput, error) {
	for idx, stage := range e.stages {
		if strings.EqualFold(stage.Name, strings.TrimSpace(name)) {
			out, err := e.runStage(ctx, idx, stage, e.promptData(in))
			if err != nil {
				return StageOutput{}, &StageError{Stage: stage.Name, Err: err}
			}
			return out, nil
		}
	}
	return StageOutput{}, services.Wrap(services.ErrNotFound, name, "run stage", fmt.Sprintf("unknown stage (have %s)", strings.Join(e.Stages(), ", ")), nil)
}

func (e *Engine) promptData(in Input) PromptData {
	return PromptData{
		Keyword:      strings.TrimSpace(in.Keyword),
		KeywordTitle: keywordTitle(in.Keyword),
		SEOTitle:     strings.TrimSpace(in.SEOTitle),
		Title:        strings.TrimSpace(in.Title),
		Content:      in.Content,
		CTAURL:       e.ctaURL,
	}
}

func (e *Engine) runStage(ctx context.Context, idx int, stage Stage, data PromptData) (StageOutput, error) {
	prompt, err := stage.render(data)
	if err != nil {
		return StageOutput{}, services.Wrap(services.ErrConfiguration, stage.Name, "render prompt", "", err)
	}

	callCtx := ctx
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}

	started := time.Now()
	gen, err := e.generator.Generate(callCtx, prompt, stage.Params)
	elapsed := time.Since(started)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return StageOutput{}, services.Wrap(services.ErrTimeout, stage.Name, "generate", fmt.Sprintf("no reply within %s", elapsed.Round(time.Second)), err)
		}
		return StageOutput{}, services.Wrap(services.ErrExternalTool, stage.Name, "generate", "", err)
	}
	if gen.Truncated() {
		return StageOutput{}, services.Wrap(services.ErrEnhancementTruncated, stage.Name, "generate",
			fmt.Sprintf("generation stopped by length limit (finish_reason=%s)", gen.FinishReason), nil)
	}

	out := StageOutput{
		Stage:        stage.Name,
		Index:        idx,
		FinishReason: gen.FinishReason,
		Model:        gen.Model,
		Duration:     elapsed,
	}
	switch stage.Output {
	case StructuredJSON:
		reply, err := DecodeFinal(stage.Name, gen.Text)
		if err != nil {
			return StageOutput{}, err
		}
		out.Content = reply.Content
		out.MetaTitle = reply.MetaTitle
		out.MetaDescription = reply.MetaDescription
	default:
		content, err := decodeRaw(stage.Name, gen.Text)
		if err != nil {
			return StageOutput{}, err
		}
		out.Content = content
	}

	logging.WithContext(services.WithStage(ctx, stage.Name), e.logger).Debug("stage generated",
		logging.String(logging.FieldEventType, "stage_generated"),
		logging.String("model", gen.Model),
		logging.String("finish_reason", gen.FinishReason),
		logging.Int("prompt_chars", len(prompt)),
		logging.Int("output_chars", len(out.Content)),
		logging.Duration("stage_duration", elapsed),
	)
	return out, nil
}
