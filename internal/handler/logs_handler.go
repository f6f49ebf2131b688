package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/calendar-ai-api/internal/logs"
	"github.com/noah-isme/calendar-ai-api/pkg/response"
)

// LogsHandler exposes the in-memory diagnostic log buffer.
type LogsHandler struct {
	buffer *logs.Buffer
}

// NewLogsHandler creates a new handler.
func NewLogsHandler(buffer *logs.Buffer) *LogsHandler {
	return &LogsHandler{buffer: buffer}
}

// List godoc
// @Summary Tail diagnostic logs
// @Description Return buffered diagnostics newer than since_id
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Param since_id query int false "Return entries with a larger id" default(0)
// @Success 200 {object} response.Envelope
// @Router /logs [get]
func (h *LogsHandler) List(c *gin.Context) {
	sinceID, _ := strconv.ParseInt(c.DefaultQuery("since_id", "0"), 10, 64)
	entries := h.buffer.Since(sinceID)
	response.JSON(c, http.StatusOK, entries)
}
