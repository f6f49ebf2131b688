package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/calendar-ai-api/internal/models"
	"github.com/noah-isme/calendar-ai-api/internal/plan"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
)

// EditPlanner produces a validated plan from a natural language prompt.
type EditPlanner interface {
	PlanEdits(ctx context.Context, userPrompt string, events []models.Event) (*plan.Result, error)
}

// EditResponse is what an assistant edit returns to the client: the plan the
// model produced and the outcome of applying it.
type EditResponse struct {
	Plan        *plan.Plan          `json:"plan"`
	ApplyResult *models.ApplyResult `json:"apply_result"`
}

// AssistantService orchestrates prompt driven calendar edits: it loads the
// user's events, asks the planner for a plan, and hands the plan to the
// applier. Planning never mutates state, so a failed plan leaves the
// calendar untouched.
type AssistantService struct {
	events  *EventService
	planner EditPlanner
	applier *ApplyService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAssistantService constructs an AssistantService instance.
func NewAssistantService(events *EventService, planner EditPlanner, applier *ApplyService, metrics *MetricsService, logger *zap.Logger) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{events: events, planner: planner, applier: applier, metrics: metrics, logger: logger}
}

// EditByPrompt runs the full plan and apply pipeline for one prompt.
func (s *AssistantService) EditByPrompt(ctx context.Context, userID, prompt string) (*EditResponse, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "prompt is required")
	}

	events, err := s.events.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.planner.PlanEdits(ctx, prompt, events)
	if err != nil {
		s.recordOutcome(PlanOutcomeFailed)
		return nil, err
	}
	if result.Repaired {
		s.recordOutcome(PlanOutcomeRepaired)
	} else {
		s.recordOutcome(PlanOutcomeValid)
	}

	p := result.Plan
	s.logger.Info("plan produced",
		zap.String("user_id", userID),
		zap.Int("operations", len(p.Operations)),
		zap.Bool("repaired", result.Repaired))

	// A valid plan with zero operations is a refusal, answer, or no-op. The
	// calendar is returned unchanged alongside the model's summary.
	if len(p.Operations) == 0 {
		empty := &models.ApplyResult{Events: events, Results: []models.OperationResult{}}
		return &EditResponse{Plan: p, ApplyResult: empty}, nil
	}

	applied, err := s.applier.Apply(ctx, userID, p)
	if err != nil {
		return nil, err
	}

	return &EditResponse{Plan: p, ApplyResult: applied}, nil
}

func (s *AssistantService) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPlanOutcome(outcome)
	}
}
