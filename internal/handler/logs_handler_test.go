package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-ai-api/internal/logs"
)

func TestLogsHandlerTailsSinceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buffer := logs.NewBuffer(10)
	buffer.Record("ai", "info", "first", nil)
	buffer.Record("ai", "info", "second", nil)
	buffer.Record("ai", "warn", "third", nil)
	handler := NewLogsHandler(buffer)

	c, w := newGinContext(t, http.MethodGet, "/logs?since_id=1", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []logs.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, "second", envelope.Data[0].Message)
	assert.Equal(t, "third", envelope.Data[1].Message)
}

func TestLogsHandlerDefaultsToFullBuffer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buffer := logs.NewBuffer(10)
	buffer.Record("ai", "info", "only", nil)
	handler := NewLogsHandler(buffer)

	c, w := newGinContext(t, http.MethodGet, "/logs", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []logs.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
}
