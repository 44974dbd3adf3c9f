package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type feedbackStore interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	ListByTutoring(ctx context.Context, tutoringID string) ([]models.Feedback, error)
}

// FeedbackService records participant evaluations, which gate completion.
type FeedbackService struct {
	users     userFinder
	tutorings tutoringFinder
	feedback  feedbackStore
	validator *validator.Validate
	logger    *zap.Logger
	tutoringDeps
}

// NewFeedbackService constructs the service.
func NewFeedbackService(
	users userFinder,
	tutorings tutoringFinder,
	feedback feedbackStore,
	validate *validator.Validate,
	logger *zap.Logger,
	opts ...TutoringOption,
) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{
		users:        users,
		tutorings:    tutorings,
		feedback:     feedback,
		validator:    validate,
		logger:       logger,
		tutoringDeps: newTutoringDeps(opts),
	}
}

// Submit stores the evaluator's feedback on an open tutoring.
func (s *FeedbackService) Submit(ctx context.Context, tutoringID, evaluatorID string, req dto.SubmitFeedbackRequest) (*models.Feedback, error) {
	req.Score = strings.TrimSpace(req.Score)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	if strings.EqualFold(req.Score, models.SystemScore) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score N/A is reserved for system records")
	}

	tutoring, err := loadTutoring(ctx, s.tutorings, tutoringID)
	if err != nil {
		return nil, err
	}
	if tutoring.Status != models.TutoringActive && tutoring.Status != models.TutoringPendingCancellation {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "feedback is closed for "+string(tutoring.Status)+" tutorings")
	}
	evaluator, err := loadUser(ctx, s.users, evaluatorID, "evaluator")
	if err != nil {
		return nil, err
	}
	if !tutoring.HasParticipant(evaluator.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only participants can leave feedback")
	}

	now := s.now().UTC()
	feedback := &models.Feedback{
		EvaluatorID:    evaluator.ID,
		TutoringID:     tutoring.ID,
		EvaluationDate: now,
		Score:          req.Score,
		Comments:       strings.TrimSpace(req.Comments),
		CreatedAt:      now,
	}
	if err := s.feedback.Create(ctx, feedback); err != nil {
		return nil, internalError(err, "failed to save feedback")
	}

	s.logger.Info("feedback recorded", zap.String("tutoring_id", tutoring.ID), zap.String("evaluator_id", evaluator.ID))
	if s.audit != nil {
		payload, _ := json.Marshal(map[string]string{"tutoring_id": tutoring.ID, "score": feedback.Score})
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &evaluator.ID,
			Action:     models.AuditActionFeedbackSubmit,
			Resource:   "feedback",
			ResourceID: &feedback.ID,
			NewValues:  payload,
		})
	}
	return feedback, nil
}

// List returns the feedback of a tutoring to its participants and administrators.
func (s *FeedbackService) List(ctx context.Context, tutoringID, callerID string) ([]models.Feedback, error) {
	tutoring, err := loadTutoring(ctx, s.tutorings, tutoringID)
	if err != nil {
		return nil, err
	}
	caller, err := loadUser(ctx, s.users, callerID, "caller")
	if err != nil {
		return nil, err
	}
	if err := authorizeTutoringRead(tutoring, caller); err != nil {
		return nil, err
	}
	items, err := s.feedback.ListByTutoring(ctx, tutoring.ID)
	if err != nil {
		return nil, internalError(err, "failed to list feedback")
	}
	if items == nil {
		items = []models.Feedback{}
	}
	return items, nil
}

