package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-ai-api/internal/middleware"
	"github.com/noah-isme/calendar-ai-api/internal/models"
	"github.com/noah-isme/calendar-ai-api/internal/plan"
	"github.com/noah-isme/calendar-ai-api/internal/service"
	"github.com/noah-isme/calendar-ai-api/internal/store"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
)

type plannerStub struct {
	result *plan.Result
	err    error
}

func (p *plannerStub) PlanEdits(ctx context.Context, userPrompt string, events []models.Event) (*plan.Result, error) {
	return p.result, p.err
}

func newGinContext(t *testing.T, method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func newAssistantHandlerForTest(t *testing.T, planner service.EditPlanner, events ...models.Event) *AssistantHandler {
	t.Helper()
	eventStore, err := store.NewFileEventStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, eventStore.Replace(ctx, "u1", events))
	require.NoError(t, eventStore.MarkSeeded(ctx, "u1"))

	eventSvc := service.NewEventService(eventStore, nil, nil, nil)
	applySvc := service.NewApplyService(eventStore, nil, nil, nil)
	assistantSvc := service.NewAssistantService(eventSvc, planner, applySvc, nil, nil)
	return NewAssistantHandler(assistantSvc)
}

func TestAssistantHandlerEditAppliesPlan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	title := "Standup"
	date := "2026-09-01"
	timeStr := "09:00"
	handler := newAssistantHandlerForTest(t, &plannerStub{result: &plan.Result{Plan: &plan.Plan{
		Summary: "added a standup",
		Operations: []plan.Operation{
			{Action: plan.ActionCreate, Title: &title, Date: &date, Time: &timeStr},
		},
	}}})

	payload, _ := json.Marshal(EditRequest{Prompt: "add a standup tomorrow at 9"})
	c, w := newGinContext(t, http.MethodPost, "/assistant/edits", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Edit(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data service.EditResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Plan)
	assert.Equal(t, "added a standup", envelope.Data.Plan.Summary)
	require.NotNil(t, envelope.Data.ApplyResult)
	require.Len(t, envelope.Data.ApplyResult.Results, 1)
	assert.Equal(t, models.OperationCreated, envelope.Data.ApplyResult.Results[0].Status)
	require.Len(t, envelope.Data.ApplyResult.Events, 1)
	assert.Equal(t, "Standup", envelope.Data.ApplyResult.Events[0].Title)
}

func TestAssistantHandlerEditPlanUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAssistantHandlerForTest(t, &plannerStub{err: appErrors.ErrPlanUnavailable})

	payload, _ := json.Marshal(EditRequest{Prompt: "do something"})
	c, w := newGinContext(t, http.MethodPost, "/assistant/edits", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Edit(c)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrPlanUnavailable.Code)
}

func TestAssistantHandlerEditRejectsEmptyPrompt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAssistantHandlerForTest(t, &plannerStub{})

	payload, _ := json.Marshal(EditRequest{Prompt: ""})
	c, w := newGinContext(t, http.MethodPost, "/assistant/edits", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Edit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistantHandlerEditRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAssistantHandlerForTest(t, &plannerStub{})

	payload, _ := json.Marshal(EditRequest{Prompt: "anything"})
	c, w := newGinContext(t, http.MethodPost, "/assistant/edits", payload)

	handler.Edit(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
