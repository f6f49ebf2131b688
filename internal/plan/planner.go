package plan

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/noah-isme/calendar-ai-api/internal/models"
	"github.com/noah-isme/calendar-ai-api/pkg/config"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
)

const planPromptTemplate = `You help maintain a calendar.
You must return structured JSON that respects the format instructions.

Keep existing event IDs when modifying or deleting events.
Use 24-hour time format. Dates are YYYY-MM-DD.

User request:
{userPrompt}

Existing events JSON:
{events}

{format_instructions}`

const repairPromptTemplate = `The following output was supposed to satisfy these format instructions but failed validation.

{format_instructions}

Invalid output:
{invalid_output}

Return the corrected, strictly valid JSON object only.`

// DiagnosticSink receives the planner's request/response trail. Writes are
// fire-and-forget diagnostics, never consulted for control flow.
type DiagnosticSink interface {
	Record(source, level, message string, detail interface{})
}

// PlannerConfig tunes model invocation.
type PlannerConfig struct {
	Temperature float64
	Timeout     time.Duration
}

// Planner turns a free-text request plus the user's current events into a
// validated Plan, with a single bounded repair pass when the first response
// fails schema validation.
type Planner struct {
	llm        llms.Model
	sink       DiagnosticSink
	logger     *zap.Logger
	planPrompt prompts.PromptTemplate
	fixPrompt  prompts.PromptTemplate
	cfg        PlannerConfig
}

// NewOllamaModel builds the langchaingo Ollama client from environment
// configuration: model identifier, endpoint base URL, and the optional GPU
// layer hint.
func NewOllamaModel(cfg config.OllamaConfig) (llms.Model, error) {
	opts := []ollama.Option{
		ollama.WithModel(cfg.Model),
		ollama.WithServerURL(cfg.BaseURL),
	}
	if cfg.NumGPU > 0 {
		opts = append(opts, ollama.WithRunnerNumGPU(cfg.NumGPU))
	}
	return ollama.New(opts...)
}

// NewPlanner constructs a planner around any langchaingo model.
func NewPlanner(llm llms.Model, sink DiagnosticSink, logger *zap.Logger, cfg PlannerConfig) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Planner{
		llm:        llm,
		sink:       sink,
		logger:     logger,
		planPrompt: fstringPrompt(planPromptTemplate, []string{"userPrompt", "events", "format_instructions"}),
		fixPrompt:  fstringPrompt(repairPromptTemplate, []string{"format_instructions", "invalid_output"}),
		cfg:        cfg,
	}
}

// fstringPrompt builds a prompt template that substitutes {name} style
// placeholders. NewPromptTemplate defaults to Go template syntax, which would
// pass the {name} markers through to the model verbatim.
func fstringPrompt(template string, vars []string) prompts.PromptTemplate {
	return prompts.PromptTemplate{
		Template:       template,
		InputVariables: vars,
		TemplateFormat: prompts.TemplateFormatFString,
	}
}

// Result is a validated plan plus whether the repair pass produced it.
type Result struct {
	Plan     *Plan
	Repaired bool
}

// PlanEdits produces a validated plan for the given prompt against the
// user's current events. The first model response is parsed and validated;
// on failure exactly one repair call is made. A second failure surfaces as
// ErrPlanUnavailable carrying the validation error as cause.
func (p *Planner) PlanEdits(ctx context.Context, userPrompt string, events []models.Event) (*Result, error) {
	eventsJSON, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize events")
	}

	instructions := FormatInstructions()
	request, err := p.planPrompt.Format(map[string]any{
		"userPrompt":          userPrompt,
		"events":              string(eventsJSON),
		"format_instructions": instructions,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render planner prompt")
	}

	p.record("info", "Requesting calendar plan", map[string]string{"prompt": userPrompt, "request": request})

	raw, err := p.generate(ctx, request)
	if err != nil {
		p.record("error", "Model call failed", err.Error())
		return nil, appErrors.Wrap(err, appErrors.ErrPlanUnavailable.Code, appErrors.ErrPlanUnavailable.Status, appErrors.ErrPlanUnavailable.Message)
	}
	p.record("info", "Model response received", raw)

	parsed, verr := Parse(raw)
	if verr == nil {
		return &Result{Plan: parsed}, nil
	}
	p.record("warn", "Plan failed validation, attempting repair", verr)
	p.logger.Warn("plan validation failed", zap.String("error", verr.Error()))

	// One bounded repair attempt, explicit in control flow. Not a loop.
	fixRequest, err := p.fixPrompt.Format(map[string]any{
		"format_instructions": instructions,
		"invalid_output":      raw,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render repair prompt")
	}

	corrected, err := p.generate(ctx, fixRequest)
	if err != nil {
		p.record("error", "Repair model call failed", err.Error())
		return nil, appErrors.Wrap(err, appErrors.ErrPlanUnavailable.Code, appErrors.ErrPlanUnavailable.Status, appErrors.ErrPlanUnavailable.Message)
	}
	p.record("info", "Repair response received", corrected)

	parsed, verr = Parse(corrected)
	if verr != nil {
		p.record("error", "Repaired plan still invalid", verr)
		return nil, appErrors.Wrap(verr, appErrors.ErrPlanUnavailable.Code, appErrors.ErrPlanUnavailable.Status, appErrors.ErrPlanUnavailable.Message)
	}
	return &Result{Plan: parsed, Repaired: true}, nil
}

func (p *Planner) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	return llms.GenerateFromSinglePrompt(callCtx, p.llm, prompt, llms.WithTemperature(p.cfg.Temperature))
}

func (p *Planner) record(level, message string, detail interface{}) {
	if p.sink == nil {
		return
	}
	p.sink.Record("ai", level, message, detail)
}
