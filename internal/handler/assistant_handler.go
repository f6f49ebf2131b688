package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/calendar-ai-api/internal/service"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
	"github.com/noah-isme/calendar-ai-api/pkg/response"
)

// EditRequest is the payload for a prompt driven calendar edit.
type EditRequest struct {
	Prompt string `json:"prompt"`
}

// AssistantHandler wires HTTP endpoints to the assistant service.
type AssistantHandler struct {
	service *service.AssistantService
}

// NewAssistantHandler creates a new handler.
func NewAssistantHandler(svc *service.AssistantService) *AssistantHandler {
	return &AssistantHandler{service: svc}
}

// Edit godoc
// @Summary Edit calendar by prompt
// @Description Plan and apply calendar changes described in natural language
// @Tags Assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body handler.EditRequest true "Edit prompt"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /assistant/edits [post]
func (h *AssistantHandler) Edit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid edit payload"))
		return
	}

	res, err := h.service.EditByPrompt(c.Request.Context(), claims.UserID, req.Prompt)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}
