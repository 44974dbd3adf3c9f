package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/repository"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type tutoringRequestStore interface {
	FindByID(ctx context.Context, id string) (*models.TutoringRequest, error)
	Create(ctx context.Context, req *models.TutoringRequest) error
	UpdateStatus(ctx context.Context, id string, from, to models.TutoringRequestStatus, updatedAt time.Time) error
}

// requestTransitions lists the intake moves an administrator may perform.
// ASSIGNED is reached only through tutoring creation.
var requestTransitions = map[models.TutoringRequestStatus][]models.TutoringRequestStatus{
	models.TutoringRequestSubmitted:  {models.TutoringRequestPending, models.TutoringRequestRejected},
	models.TutoringRequestPending:    {models.TutoringRequestApproved, models.TutoringRequestRejected},
	models.TutoringRequestApproved:   {models.TutoringRequestConversing, models.TutoringRequestRejected},
	models.TutoringRequestConversing: {models.TutoringRequestRejected},
}

// TutoringRequestService handles tutee intake up to the CONVERSING stage.
type TutoringRequestService struct {
	users     userFinder
	requests  tutoringRequestStore
	validator *validator.Validate
	logger    *zap.Logger
	tutoringDeps
}

// NewTutoringRequestService constructs the service.
func NewTutoringRequestService(
	users userFinder,
	requests tutoringRequestStore,
	validate *validator.Validate,
	logger *zap.Logger,
	opts ...TutoringOption,
) *TutoringRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutoringRequestService{
		users:        users,
		requests:     requests,
		validator:    validate,
		logger:       logger,
		tutoringDeps: newTutoringDeps(opts),
	}
}

// Submit files a new request on behalf of a tutee.
func (s *TutoringRequestService) Submit(ctx context.Context, tuteeID string, req dto.SubmitTutoringRequest) (*models.TutoringRequest, error) {
	skills := make(pq.StringArray, 0, len(req.Skills))
	for _, skill := range req.Skills {
		if trimmed := strings.TrimSpace(skill); trimmed != "" {
			skills = append(skills, trimmed)
		}
	}
	req.Skills = skills
	req.NeedDescription = strings.TrimSpace(req.NeedDescription)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tutoring request payload")
	}

	tutee, err := loadUser(ctx, s.users, tuteeID, "tutee")
	if err != nil {
		return nil, err
	}
	if tutee.Role != models.RoleTutee {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "only tutees can submit tutoring requests")
	}

	now := s.now().UTC()
	request := &models.TutoringRequest{
		TuteeID:         tutee.ID,
		Skills:          skills,
		NeedDescription: req.NeedDescription,
		Status:          models.TutoringRequestSubmitted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, internalError(err, "failed to create tutoring request")
	}

	s.logger.Info("tutoring request submitted", zap.String("request_id", request.ID), zap.String("tutee_id", tutee.ID))
	s.recordAudit(ctx, tutee.ID, models.AuditActionRequestSubmit, request.ID, "", request.Status)
	return request, nil
}

// Get returns a request to its tutee, tutors, or administrators.
func (s *TutoringRequestService) Get(ctx context.Context, requestID, callerID string) (*models.TutoringRequest, error) {
	caller, err := loadUser(ctx, s.users, callerID, "caller")
	if err != nil {
		return nil, err
	}
	request, err := loadRequest(ctx, s.requests, requestID)
	if err != nil {
		return nil, err
	}
	if request.TuteeID != caller.ID && !caller.IsAdministrator() && !caller.CanTutor() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "tutoring request belongs to another tutee")
	}
	return request, nil
}

// UpdateStatus moves a request along the intake workflow.
func (s *TutoringRequestService) UpdateStatus(ctx context.Context, requestID, callerID string, req dto.UpdateTutoringRequestStatus) (*models.TutoringRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	caller, err := loadUser(ctx, s.users, callerID, "caller")
	if err != nil {
		return nil, err
	}
	if !caller.IsAdministrator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can review tutoring requests")
	}

	request, err := loadRequest(ctx, s.requests, requestID)
	if err != nil {
		return nil, err
	}
	if !requestTransitionAllowed(request.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cannot move request from "+string(request.Status)+" to "+string(req.Status))
	}

	now := s.now().UTC()
	if err := s.requests.UpdateStatus(ctx, request.ID, request.Status, req.Status, now); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "tutoring request changed concurrently")
		}
		return nil, internalError(err, "failed to update tutoring request")
	}

	previous := request.Status
	request.Status = req.Status
	request.UpdatedAt = now
	s.logger.Info("tutoring request reviewed",
		zap.String("request_id", request.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(request.Status)),
	)
	s.recordAudit(ctx, caller.ID, models.AuditActionRequestStatus, request.ID, previous, request.Status)
	return request, nil
}

func requestTransitionAllowed(from, to models.TutoringRequestStatus) bool {
	for _, candidate := range requestTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (s *TutoringRequestService) recordAudit(ctx context.Context, userID, action, requestID string, from, to models.TutoringRequestStatus) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "tutoring_request",
		ResourceID: &requestID,
	}
	if from != "" {
		entry.OldValues, _ = json.Marshal(map[string]string{"status": string(from)})
	}
	entry.NewValues, _ = json.Marshal(map[string]string{"status": string(to)})
	s.audit.Record(ctx, entry)
}
