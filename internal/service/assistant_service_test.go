package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-ai-api/internal/models"
	"github.com/noah-isme/calendar-ai-api/internal/plan"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
)

type plannerStub struct {
	result *plan.Result
	err    error
	calls  int
	prompt string
	events []models.Event
}

func (p *plannerStub) PlanEdits(ctx context.Context, userPrompt string, events []models.Event) (*plan.Result, error) {
	p.calls++
	p.prompt = userPrompt
	p.events = events
	return p.result, p.err
}

func newAssistantForTest(st *memStore, planner EditPlanner) *AssistantService {
	events := newEventServiceForTest(st)
	applier := NewApplyService(st, nil, nil, nil)
	return NewAssistantService(events, planner, applier, nil, nil)
}

func TestAssistantAppliesPlannedOperations(t *testing.T) {
	st := seededStore(
		models.Event{ID: 1, Title: "Dentist", Date: "2026-09-01", Time: "14:30", Type: "appointment"},
	)
	planner := &plannerStub{result: &plan.Result{Plan: &plan.Plan{
		Summary: "moved your appointment",
		Operations: []plan.Operation{
			{Action: plan.ActionUpdate, ID: 1, Date: strPtr("2026-09-04"), Time: strPtr("14:00")},
		},
	}}}
	svc := newAssistantForTest(st, planner)

	res, err := svc.EditByPrompt(context.Background(), "u1", "move my dentist appointment to Friday at 2pm")
	require.NoError(t, err)
	assert.Equal(t, "moved your appointment", res.Plan.Summary)
	require.Len(t, res.ApplyResult.Results, 1)
	assert.Equal(t, models.OperationUpdated, res.ApplyResult.Results[0].Status)
	require.Len(t, res.ApplyResult.Events, 1)
	assert.Equal(t, "2026-09-04", res.ApplyResult.Events[0].Date)

	assert.Equal(t, 1, planner.calls)
	assert.Equal(t, "move my dentist appointment to Friday at 2pm", planner.prompt)
	require.Len(t, planner.events, 1)
}

func TestAssistantZeroOperationPlanLeavesCalendarUntouched(t *testing.T) {
	st := seededStore(
		models.Event{ID: 1, Title: "Keep", Date: "2026-09-01", Time: "09:00", Type: "meeting"},
	)
	planner := &plannerStub{result: &plan.Result{Plan: &plan.Plan{
		Summary: "I could not find a matching event.",
	}}}
	svc := newAssistantForTest(st, planner)

	res, err := svc.EditByPrompt(context.Background(), "u1", "cancel my yoga class")
	require.NoError(t, err)
	assert.Equal(t, "I could not find a matching event.", res.Plan.Summary)
	assert.Empty(t, res.ApplyResult.Results)
	require.Len(t, res.ApplyResult.Events, 1)

	// No Replace happened.
	assert.Equal(t, 0, st.replaceCalls)
}

func TestAssistantPlannerFailureLeavesCalendarUntouched(t *testing.T) {
	st := seededStore(
		models.Event{ID: 1, Title: "Keep", Date: "2026-09-01", Time: "09:00", Type: "meeting"},
	)
	planner := &plannerStub{err: appErrors.ErrPlanUnavailable}
	svc := newAssistantForTest(st, planner)

	_, err := svc.EditByPrompt(context.Background(), "u1", "do something")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPlanUnavailable.Code, appErr.Code)
	assert.Equal(t, 0, st.replaceCalls)
}

func TestAssistantRejectsEmptyPrompt(t *testing.T) {
	planner := &plannerStub{}
	svc := newAssistantForTest(seededStore(), planner)

	_, err := svc.EditByPrompt(context.Background(), "u1", "   ")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, 0, planner.calls)
}
