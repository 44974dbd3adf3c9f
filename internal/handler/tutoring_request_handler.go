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

type tutoringRequestService interface {
	Submit(ctx context.Context, tuteeID string, req dto.SubmitTutoringRequest) (*models.TutoringRequest, error)
	Get(ctx context.Context, requestID, callerID string) (*models.TutoringRequest, error)
	UpdateStatus(ctx context.Context, requestID, callerID string, req dto.UpdateTutoringRequestStatus) (*models.TutoringRequest, error)
}

// TutoringRequestHandler exposes tutee intake endpoints.
type TutoringRequestHandler struct {
	service tutoringRequestService
}

// NewTutoringRequestHandler builds a new handler.
func NewTutoringRequestHandler(service tutoringRequestService) *TutoringRequestHandler {
	return &TutoringRequestHandler{service: service}
}

// Submit godoc
// @Summary Submit a tutoring request
// @Tags TutoringRequests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitTutoringRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /tutoring-requests [post]
func (h *TutoringRequestHandler) Submit(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.SubmitTutoringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tutoring request payload"))
		return
	}
	request, err := h.service.Submit(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Get godoc
// @Summary Get a tutoring request
// @Tags TutoringRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /tutoring-requests/{id} [get]
func (h *TutoringRequestHandler) Get(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// UpdateStatus godoc
// @Summary Move a tutoring request through review
// @Tags TutoringRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateTutoringRequestStatus true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tutoring-requests/{id}/status [patch]
func (h *TutoringRequestHandler) UpdateStatus(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.UpdateTutoringRequestStatus
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	request, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
