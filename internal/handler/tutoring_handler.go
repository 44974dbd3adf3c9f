package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/response"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type tutoringAssigner interface {
	CreateTutoring(ctx context.Context, requestID, tutorID, objectives string) (*models.Tutoring, error)
}

type tutoringLifecycle interface {
	Complete(ctx context.Context, tutoringID, callerID, finalReportRef string) (*models.Tutoring, error)
	RequestCancellation(ctx context.Context, tutoringID, callerID, reason string) (*models.Tutoring, error)
	ConfirmCancellation(ctx context.Context, tutoringID, adminID, comment string) (*models.Tutoring, error)
}

type tutoringReader interface {
	Get(ctx context.Context, tutoringID, callerID string) (*models.Tutoring, error)
	List(ctx context.Context, callerID, participantID string, query dto.TutoringQuery) ([]models.Tutoring, error)
}

type summaryExporter interface {
	Summary(ctx context.Context, tutoringID, callerID string, format service.ExportFormat) (*service.ExportResult, error)
}

// TutoringHandler exposes tutoring assignment and lifecycle endpoints.
type TutoringHandler struct {
	assigner  tutoringAssigner
	lifecycle tutoringLifecycle
	reader    tutoringReader
	exporter  summaryExporter
}

// NewTutoringHandler builds a new handler.
func NewTutoringHandler(assigner tutoringAssigner, lifecycle tutoringLifecycle, reader tutoringReader, exporter summaryExporter) *TutoringHandler {
	return &TutoringHandler{assigner: assigner, lifecycle: lifecycle, reader: reader, exporter: exporter}
}

// Create godoc
// @Summary Assign a tutor to a conversing request
// @Tags Tutorings
// @Accept json
// @Produce json
// @Param payload body dto.CreateTutoringRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /tutorings [post]
func (h *TutoringHandler) Create(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	var req dto.CreateTutoringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tutoring payload"))
		return
	}
	tutoring, err := h.assigner.CreateTutoring(c.Request.Context(), req.RequestID, req.TutorID, strings.TrimSpace(req.Objectives))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tutoring)
}

// List godoc
// @Summary List tutorings of the caller
// @Tags Tutorings
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param participantId query string false "Participant (administrators only)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /tutorings [get]
func (h *TutoringHandler) List(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	query, err := parseTutoringQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.reader.List(c.Request.Context(), caller, c.Query("participantId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &models.Pagination{Limit: query.Limit, Offset: query.Offset, Count: len(items)})
}

// Get godoc
// @Summary Get a tutoring
// @Tags Tutorings
// @Produce json
// @Param id path string true "Tutoring ID"
// @Success 200 {object} response.Envelope
// @Router /tutorings/{id} [get]
func (h *TutoringHandler) Get(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	tutoring, err := h.reader.Get(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutoring, nil)
}

// Summary godoc
// @Summary Download a tutoring summary
// @Tags Tutorings
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Tutoring ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /tutorings/{id}/summary [get]
func (h *TutoringHandler) Summary(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	result, err := h.exporter.Summary(c.Request.Context(), c.Param("id"), caller, service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Download(c, result.Filename, result.ContentType, result.Payload)
}

// Complete godoc
// @Summary Complete an active tutoring
// @Tags Tutorings
// @Accept json
// @Produce json
// @Param id path string true "Tutoring ID"
// @Param payload body dto.CompleteTutoringRequest true "Final report"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tutorings/{id}/complete [post]
func (h *TutoringHandler) Complete(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.CompleteTutoringRequest
	if !bindOptionalJSON(c, &req, "invalid completion payload") {
		return
	}
	tutoring, err := h.lifecycle.Complete(c.Request.Context(), c.Param("id"), caller, req.FinalReportRef)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutoring, nil)
}

// RequestCancellation godoc
// @Summary Ask to cancel an active tutoring
// @Tags Tutorings
// @Accept json
// @Produce json
// @Param id path string true "Tutoring ID"
// @Param payload body dto.CancellationRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /tutorings/{id}/cancellation [post]
func (h *TutoringHandler) RequestCancellation(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.CancellationRequest
	if !bindOptionalJSON(c, &req, "invalid cancellation payload") {
		return
	}
	tutoring, err := h.lifecycle.RequestCancellation(c.Request.Context(), c.Param("id"), caller, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutoring, nil)
}

// ConfirmCancellation godoc
// @Summary Confirm a pending cancellation
// @Tags Tutorings
// @Accept json
// @Produce json
// @Param id path string true "Tutoring ID"
// @Param payload body dto.ConfirmCancellationRequest false "Comment"
// @Success 200 {object} response.Envelope
// @Router /tutorings/{id}/cancellation/confirm [post]
func (h *TutoringHandler) ConfirmCancellation(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.ConfirmCancellationRequest
	if !bindOptionalJSON(c, &req, "invalid confirmation payload") {
		return
	}
	tutoring, err := h.lifecycle.ConfirmCancellation(c.Request.Context(), c.Param("id"), caller, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutoring, nil)
}

var knownTutoringStatuses = map[models.TutoringStatus]struct{}{
	models.TutoringActive:              {},
	models.TutoringPendingCancellation: {},
	models.TutoringCompleted:           {},
	models.TutoringCancelled:           {},
}

func parseTutoringQuery(c *gin.Context) (dto.TutoringQuery, error) {
	query := dto.TutoringQuery{Limit: defaultListLimit}
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			status := models.TutoringStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status == "" {
				continue
			}
			if _, ok := knownTutoringStatuses[status]; !ok {
				return query, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(status))
			}
			query.Status = append(query.Status, status)
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return query, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer")
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		query.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return query, appErrors.Clone(appErrors.ErrValidation, "offset must be zero or positive")
		}
		query.Offset = offset
	}
	return query, nil
}
