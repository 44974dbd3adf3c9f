package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/response"
)

type feedbackService interface {
	Submit(ctx context.Context, tutoringID, evaluatorID string, req dto.SubmitFeedbackRequest) (*models.Feedback, error)
	List(ctx context.Context, tutoringID, callerID string) ([]models.Feedback, error)
}

// FeedbackHandler exposes participant evaluation endpoints.
type FeedbackHandler struct {
	service feedbackService
}

// NewFeedbackHandler builds a new handler.
func NewFeedbackHandler(service feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// Submit godoc
// @Summary Leave feedback on a tutoring
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Tutoring ID"
// @Param payload body dto.SubmitFeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Router /tutorings/{id}/feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}
	feedback, err := h.service.Submit(c.Request.Context(), c.Param("id"), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feedback)
}

// List godoc
// @Summary List feedback of a tutoring
// @Tags Feedback
// @Produce json
// @Param id path string true "Tutoring ID"
// @Success 200 {object} response.Envelope
// @Router /tutorings/{id}/feedback [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
