package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/repository"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type tutoringRequestFinder interface {
	FindByID(ctx context.Context, id string) (*models.TutoringRequest, error)
}

type tutoringAssigner interface {
	CountActiveByTutor(ctx context.Context, tutorID string) (int, error)
	CreateFromRequest(ctx context.Context, tutoring *models.Tutoring) error
}

// TutoringAssignmentService turns conversing requests into active tutorings.
type TutoringAssignmentService struct {
	users     userFinder
	requests  tutoringRequestFinder
	tutorings tutoringAssigner
	capacity  *CapacityPolicy
	logger    *zap.Logger
	tutoringDeps
}

// NewTutoringAssignmentService creates a service instance.
func NewTutoringAssignmentService(
	users userFinder,
	requests tutoringRequestFinder,
	tutorings tutoringAssigner,
	logger *zap.Logger,
	opts ...TutoringOption,
) *TutoringAssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutoringAssignmentService{
		users:        users,
		requests:     requests,
		tutorings:    tutorings,
		capacity:     NewCapacityPolicy(tutorings),
		logger:       logger,
		tutoringDeps: newTutoringDeps(opts),
	}
}

// CreateTutoring assigns tutorID to the request and starts a 90 day tutoring.
// Nothing is written unless the tutor, the request and the tutor's capacity
// all check out.
func (s *TutoringAssignmentService) CreateTutoring(ctx context.Context, requestID, tutorID, objectives string) (_ *models.Tutoring, err error) {
	defer func() { s.metrics.RecordTransition("create", outcomeLabel(err)) }()

	tutor, err := loadUser(ctx, s.users, tutorID, "tutor")
	if err != nil {
		return nil, err
	}
	if !tutor.CanTutor() {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole,
			fmt.Sprintf("user with role %s cannot be assigned as tutor", tutor.Role))
	}

	request, err := loadRequest(ctx, s.requests, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.TutoringRequestConversing {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("tutoring request is %s, expected %s", request.Status, models.TutoringRequestConversing))
	}

	if err := s.capacity.Check(ctx, tutor); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tutoring := &models.Tutoring{
		RequestID:       request.ID,
		TutorID:         tutor.ID,
		TuteeID:         request.TuteeID,
		Skills:          append(pq.StringArray{}, request.Skills...),
		StartDate:       now,
		ExpectedEndDate: now.Add(models.TutoringDuration),
		Status:          models.TutoringActive,
		Objectives:      objectives,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.tutorings.CreateFromRequest(ctx, tutoring); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityReached):
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "tutor reached the active tutoring limit")
		case errors.Is(err, repository.ErrStatusChanged):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "tutoring request changed before assignment")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, internalError(err, "failed to create tutoring")
	}

	s.logger.Info("tutoring created",
		zap.String("tutoring_id", tutoring.ID),
		zap.String("request_id", request.ID),
		zap.String("tutor_id", tutor.ID),
		zap.String("tutee_id", tutoring.TuteeID),
	)
	if s.cache != nil {
		s.cache.InvalidateTutoring(ctx, tutoring)
	}
	if s.audit != nil {
		payload, _ := json.Marshal(map[string]string{"request_id": request.ID, "tutor_id": tutor.ID, "status": string(tutoring.Status)})
		s.audit.Record(ctx, &models.AuditLog{
			Action:     models.AuditActionTutoringCreate,
			Resource:   "tutoring",
			ResourceID: &tutoring.ID,
			NewValues:  payload,
		})
	}
	return tutoring, nil
}
