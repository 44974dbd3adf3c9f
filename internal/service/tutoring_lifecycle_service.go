package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/repository"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

const (
	cancellationRequestedPrefix = "Cancellation requested: "
	defaultCancellationReason   = "no reason provided"
	defaultConfirmationComment  = "Cancellation confirmed by administrator"
)

type tutoringTransitioner interface {
	FindByID(ctx context.Context, id string) (*models.Tutoring, error)
	UpdateStatus(ctx context.Context, params repository.TutoringTransition) error
}

type feedbackFinder interface {
	ListByTutoringAndEvaluator(ctx context.Context, tutoringID, evaluatorID string) ([]models.Feedback, error)
}

// TutoringLifecycleService drives tutorings from ACTIVE to COMPLETED, or
// through PENDING_CANCELLATION to CANCELLED.
type TutoringLifecycleService struct {
	users     userFinder
	tutorings tutoringTransitioner
	feedback  feedbackFinder
	logger    *zap.Logger
	tutoringDeps
}

// NewTutoringLifecycleService creates a service instance.
func NewTutoringLifecycleService(
	users userFinder,
	tutorings tutoringTransitioner,
	feedback feedbackFinder,
	logger *zap.Logger,
	opts ...TutoringOption,
) *TutoringLifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutoringLifecycleService{
		users:        users,
		tutorings:    tutorings,
		feedback:     feedback,
		logger:       logger,
		tutoringDeps: newTutoringDeps(opts),
	}
}

// Complete closes an active tutoring. The caller must be its tutor or an
// administrator, and both participants must have left feedback.
func (s *TutoringLifecycleService) Complete(ctx context.Context, tutoringID, callerID, finalReportRef string) (_ *models.Tutoring, err error) {
	defer func() { s.metrics.RecordTransition("complete", outcomeLabel(err)) }()

	ref := strings.TrimSpace(finalReportRef)
	if ref == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingInput, "final report reference is required")
	}

	tutoring, err := loadTutoring(ctx, s.tutorings, tutoringID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(tutoring, models.TutoringActive, models.TutoringCompleted); err != nil {
		return nil, err
	}

	caller, err := loadUser(ctx, s.users, callerID, "caller")
	if err != nil {
		return nil, err
	}
	if !caller.IsAdministrator() && caller.ID != tutoring.TutorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the tutor or an administrator can complete a tutoring")
	}

	if err := s.requireFeedback(ctx, tutoring.ID, tutoring.TutorID, "missing tutor feedback"); err != nil {
		return nil, err
	}
	if err := s.requireFeedback(ctx, tutoring.ID, tutoring.TuteeID, "missing tutee feedback"); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.tutorings.UpdateStatus(ctx, repository.TutoringTransition{
		ID:             tutoring.ID,
		From:           models.TutoringActive,
		To:             models.TutoringCompleted,
		FinalReportRef: &ref,
		UpdatedAt:      now,
	}); err != nil {
		return nil, transitionError(err)
	}

	tutoring.Status = models.TutoringCompleted
	tutoring.FinalReportRef = &ref
	tutoring.UpdatedAt = now
	s.afterTransition(ctx, tutoring, caller.ID, models.TutoringActive, models.AuditActionTutoringComplete)
	return tutoring, nil
}

// RequestCancellation moves an active tutoring to PENDING_CANCELLATION on
// behalf of one of its participants and records the reason as feedback.
func (s *TutoringLifecycleService) RequestCancellation(ctx context.Context, tutoringID, callerID, reason string) (_ *models.Tutoring, err error) {
	defer func() { s.metrics.RecordTransition("request_cancellation", outcomeLabel(err)) }()

	tutoring, err := loadTutoring(ctx, s.tutorings, tutoringID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(tutoring, models.TutoringActive, models.TutoringPendingCancellation); err != nil {
		return nil, err
	}

	caller, err := loadUser(ctx, s.users, callerID, "caller")
	if err != nil {
		return nil, err
	}
	if !tutoring.HasParticipant(caller.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the tutor or the tutee can request cancellation")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultCancellationReason
	}
	now := s.now().UTC()
	feedback := &models.Feedback{
		EvaluatorID:    caller.ID,
		TutoringID:     tutoring.ID,
		EvaluationDate: now,
		Score:          models.SystemScore,
		Comments:       cancellationRequestedPrefix + reason,
		CreatedAt:      now,
	}
	if err := s.tutorings.UpdateStatus(ctx, repository.TutoringTransition{
		ID:        tutoring.ID,
		From:      models.TutoringActive,
		To:        models.TutoringPendingCancellation,
		UpdatedAt: now,
		Feedback:  feedback,
	}); err != nil {
		return nil, transitionError(err)
	}

	tutoring.Status = models.TutoringPendingCancellation
	tutoring.UpdatedAt = now
	s.afterTransition(ctx, tutoring, caller.ID, models.TutoringActive, models.AuditActionCancellationRequest)
	return tutoring, nil
}

// ConfirmCancellation finalises a pending cancellation. Only administrators may confirm.
func (s *TutoringLifecycleService) ConfirmCancellation(ctx context.Context, tutoringID, adminID, comment string) (_ *models.Tutoring, err error) {
	defer func() { s.metrics.RecordTransition("confirm_cancellation", outcomeLabel(err)) }()

	tutoring, err := loadTutoring(ctx, s.tutorings, tutoringID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(tutoring, models.TutoringPendingCancellation, models.TutoringCancelled); err != nil {
		return nil, err
	}

	admin, err := loadUser(ctx, s.users, adminID, "caller")
	if err != nil {
		return nil, err
	}
	if !admin.IsAdministrator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only an administrator can confirm cancellation")
	}

	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = defaultConfirmationComment
	}
	now := s.now().UTC()
	feedback := &models.Feedback{
		EvaluatorID:    admin.ID,
		TutoringID:     tutoring.ID,
		EvaluationDate: now,
		Score:          models.SystemScore,
		Comments:       comment,
		CreatedAt:      now,
	}
	if err := s.tutorings.UpdateStatus(ctx, repository.TutoringTransition{
		ID:        tutoring.ID,
		From:      models.TutoringPendingCancellation,
		To:        models.TutoringCancelled,
		UpdatedAt: now,
		Feedback:  feedback,
	}); err != nil {
		return nil, transitionError(err)
	}

	tutoring.Status = models.TutoringCancelled
	tutoring.UpdatedAt = now
	s.afterTransition(ctx, tutoring, admin.ID, models.TutoringPendingCancellation, models.AuditActionCancellationConfirm)
	return tutoring, nil
}

func (s *TutoringLifecycleService) requireFeedback(ctx context.Context, tutoringID, evaluatorID, missing string) error {
	items, err := s.feedback.ListByTutoringAndEvaluator(ctx, tutoringID, evaluatorID)
	if err != nil {
		return internalError(err, "failed to load feedback")
	}
	if len(items) == 0 {
		return appErrors.Clone(appErrors.ErrInvalidState, missing)
	}
	return nil
}

func (s *TutoringLifecycleService) afterTransition(ctx context.Context, tutoring *models.Tutoring, actorID string, from models.TutoringStatus, action string) {
	s.logger.Info("tutoring status changed",
		zap.String("tutoring_id", tutoring.ID),
		zap.String("actor_id", actorID),
		zap.String("from", string(from)),
		zap.String("to", string(tutoring.Status)),
	)
	if s.cache != nil {
		s.cache.InvalidateTutoring(ctx, tutoring)
	}
	if s.audit != nil {
		oldValues, _ := json.Marshal(map[string]string{"status": string(from)})
		newValues, _ := json.Marshal(map[string]string{"status": string(tutoring.Status)})
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     action,
			Resource:   "tutoring",
			ResourceID: &tutoring.ID,
			OldValues:  oldValues,
			NewValues:  newValues,
		})
	}
}

func requireStatus(tutoring *models.Tutoring, expected, target models.TutoringStatus) error {
	if tutoring.Status == expected {
		return nil
	}
	return appErrors.Clone(appErrors.ErrInvalidState,
		fmt.Sprintf("cannot move tutoring from %s to %s", tutoring.Status, target))
}

func transitionError(err error) error {
	if errors.Is(err, repository.ErrStatusChanged) {
		return appErrors.Clone(appErrors.ErrInvalidState, "tutoring status changed concurrently")
	}
	return internalError(err, "failed to update tutoring status")
}
