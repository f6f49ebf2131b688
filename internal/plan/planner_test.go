package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/noah-isme/calendar-ai-api/internal/models"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
)

// fakeModel replays canned responses and records every prompt it was given.
type fakeModel struct {
	responses []string
	err       error
	prompts   []string
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt string
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}
	m.prompts = append(m.prompts, prompt)

	if m.err != nil {
		return nil, m.err
	}
	idx := len(m.prompts) - 1
	if idx >= len(m.responses) {
		return nil, errors.New("fakeModel: no response configured for call")
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.responses[idx]}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

type recordingSink struct {
	messages []string
}

func (s *recordingSink) Record(source, level, message string, detail interface{}) {
	s.messages = append(s.messages, message)
}

func newTestPlanner(model llms.Model, sink DiagnosticSink) *Planner {
	return NewPlanner(model, sink, nil, PlannerConfig{Temperature: 0.3, Timeout: 5 * time.Second})
}

func TestPlanEditsReturnsValidFirstResponse(t *testing.T) {
	model := &fakeModel{responses: []string{
		`{"summary": "add a meeting", "operations": [{"action": "create", "title": "Standup", "date": "2026-09-01", "time": "09:00"}]}`,
	}}
	sink := &recordingSink{}
	planner := newTestPlanner(model, sink)

	result, err := planner.PlanEdits(context.Background(), "add a standup", []models.Event{})
	require.NoError(t, err)
	assert.False(t, result.Repaired)
	require.Len(t, result.Plan.Operations, 1)
	assert.Equal(t, ActionCreate, result.Plan.Operations[0].Action)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "add a standup")
	assert.NotEmpty(t, sink.messages)
}

func TestPlanEditsRepairsInvalidResponseOnce(t *testing.T) {
	model := &fakeModel{responses: []string{
		`here you go: {"summary": "", "operations": []}`,
		`{"summary": "fixed", "operations": []}`,
	}}
	planner := newTestPlanner(model, &recordingSink{})

	result, err := planner.PlanEdits(context.Background(), "do nothing", nil)
	require.NoError(t, err)
	assert.True(t, result.Repaired)
	assert.Equal(t, "fixed", result.Plan.Summary)

	require.Len(t, model.prompts, 2)
	// The repair prompt carries the invalid output verbatim.
	assert.Contains(t, model.prompts[1], `"summary": ""`)
}

func TestPlanEditsFailsAfterSecondInvalidResponse(t *testing.T) {
	model := &fakeModel{responses: []string{
		`not json at all`,
		`still not json`,
	}}
	planner := newTestPlanner(model, &recordingSink{})

	_, err := planner.PlanEdits(context.Background(), "anything", nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPlanUnavailable.Code, appErr.Code)

	// Exactly one repair attempt, never more.
	assert.Len(t, model.prompts, 2)
}

func TestPlanEditsWrapsModelFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	planner := newTestPlanner(model, &recordingSink{})

	_, err := planner.PlanEdits(context.Background(), "anything", nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPlanUnavailable.Code, appErr.Code)
	assert.Len(t, model.prompts, 1)
}

func TestPlanEditsEmbedsEventsAndInstructions(t *testing.T) {
	model := &fakeModel{responses: []string{`{"summary": "ok", "operations": []}`}}
	planner := newTestPlanner(model, &recordingSink{})

	events := []models.Event{{ID: 4, Title: "Dentist", Date: "2026-09-01", Time: "14:30", Type: "appointment"}}
	_, err := planner.PlanEdits(context.Background(), "move my dentist appointment", events)
	require.NoError(t, err)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], `"Dentist"`)
	assert.Contains(t, model.prompts[0], "Respond with a single JSON object")

	// Every placeholder must have been substituted before the model call.
	assert.NotContains(t, model.prompts[0], "{userPrompt}")
	assert.NotContains(t, model.prompts[0], "{events}")
	assert.NotContains(t, model.prompts[0], "{format_instructions}")
}
