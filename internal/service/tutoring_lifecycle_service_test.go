package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

func newLifecycleService(w *tutoringWorld, opts ...TutoringOption) *TutoringLifecycleService {
	opts = append([]TutoringOption{WithClock(fixedClock)}, opts...)
	return NewTutoringLifecycleService(worldUsers{w}, worldTutorings{w}, worldFeedback{w}, zap.NewNop(), opts...)
}

func TestCompleteRequiresBothFeedbacks(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-1", "tutee-1", models.TutoringActive)
	svc := newLifecycleService(w)

	_, err := svc.Complete(context.Background(), "t-1", "tutor-1", "url")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Contains(t, err.Error(), "missing tutor feedback")

	w.addFeedback("t-1", "tutor-1")
	_, err = svc.Complete(context.Background(), "t-1", "tutor-1", "url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing tutee feedback")
	assert.Equal(t, models.TutoringActive, w.tutorings["t-1"].Status)

	w.addFeedback("t-1", "tutee-1")
	tutoring, err := svc.Complete(context.Background(), "t-1", "tutor-1", "url")
	require.NoError(t, err)
	assert.Equal(t, models.TutoringCompleted, tutoring.Status)
	require.NotNil(t, tutoring.FinalReportRef)
	assert.Equal(t, "url", *tutoring.FinalReportRef)
	assert.Equal(t, models.TutoringCompleted, w.tutorings["t-1"].Status)
	assert.Equal(t, "url", *w.tutorings["t-1"].FinalReportRef)
}

func TestCompleteValidation(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-1", "tutee-1", models.TutoringActive)
	w.addFeedback("t-1", "tutor-1")
	w.addFeedback("t-1", "tutee-1")
	svc := newLifecycleService(w)

	_, err := svc.Complete(context.Background(), "t-1", "tutor-1", "   ")
	assert.Equal(t, appErrors.ErrMissingInput.Code, appErrors.FromError(err).Code)

	_, err = svc.Complete(context.Background(), "t-1", "tutee-1", "url")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Complete(context.Background(), "missing", "tutor-1", "url")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Zero(t, w.writes)

	tutoring, err := svc.Complete(context.Background(), "t-1", "admin-1", "url")
	require.NoError(t, err)
	assert.Equal(t, models.TutoringCompleted, tutoring.Status)
}

func TestCompleteRejectsNonActive(t *testing.T) {
	for _, status := range []models.TutoringStatus{models.TutoringPendingCancellation, models.TutoringCompleted, models.TutoringCancelled} {
		t.Run(string(status), func(t *testing.T) {
			w := newTutoringWorld()
			w.addTutoring("t-1", "tutor-1", "tutee-1", status)
			svc := newLifecycleService(w)

			_, err := svc.Complete(context.Background(), "t-1", "tutor-1", "url")
			assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
			assert.Equal(t, status, w.tutorings["t-1"].Status)
		})
	}
}

func TestRequestCancellationByTutee(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-1", "tutee-1", models.TutoringActive)
	audit := &auditRecorderStub{}
	cache := &cacheInvalidatorStub{}
	svc := newLifecycleService(w, WithAuditRecorder(audit), WithTutoringCache(cache))

	tutoring, err := svc.RequestCancellation(context.Background(), "t-1", "tutee-1", "schedule conflict")
	require.NoError(t, err)
	assert.Equal(t, models.TutoringPendingCancellation, tutoring.Status)

	feedback := w.feedbackFor("t-1")
	require.Len(t, feedback, 1)
	assert.Equal(t, "tutee-1", feedback[0].EvaluatorID)
	assert.Equal(t, models.SystemScore, feedback[0].Score)
	assert.Contains(t, feedback[0].Comments, "schedule conflict")
	assert.Equal(t, fixedNow, feedback[0].EvaluationDate)

	assert.Equal(t, []string{"t-1"}, cache.ids)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionCancellationRequest, audit.entries[0].Action)
}

func TestRequestCancellationDefaultsReason(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-1", "tutee-1", models.TutoringActive)
	svc := newLifecycleService(w)

	_, err := svc.RequestCancellation(context.Background(), "t-1", "tutor-1", "")
	require.NoError(t, err)
	feedback := w.feedbackFor("t-1")
	require.Len(t, feedback, 1)
	assert.Equal(t, "Cancellation requested: no reason provided", feedback[0].Comments)
}

func TestRequestCancellationGuards(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-1", "tutee-1", models.TutoringActive)
	w.addTutoring("t-2", "tutor-1", "tutee-1", models.TutoringCompleted)
	svc := newLifecycleService(w)

	_, err := svc.RequestCancellation(context.Background(), "t-1", "tutee-2", "bored")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.RequestCancellation(context.Background(), "t-1", "admin-1", "bored")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.RequestCancellation(context.Background(), "t-2", "tutee-1", "bored")
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	_, err = svc.RequestCancellation(context.Background(), "t-1", "ghost", "bored")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	assert.Zero(t, w.writes)
	assert.Empty(t, w.feedback)
}

func TestConfirmCancellation(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-1", "tutee-1", models.TutoringActive)
	svc := newLifecycleService(w)

	_, err := svc.ConfirmCancellation(context.Background(), "t-1", "admin-1", "")
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	_, err = svc.RequestCancellation(context.Background(), "t-1", "tutee-1", "moving away")
	require.NoError(t, err)

	_, err = svc.ConfirmCancellation(context.Background(), "t-1", "tutor-1", "")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	tutoring, err := svc.ConfirmCancellation(context.Background(), "t-1", "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.TutoringCancelled, tutoring.Status)

	feedback := w.feedbackFor("t-1")
	require.Len(t, feedback, 2)
	assert.Equal(t, "admin-1", feedback[1].EvaluatorID)
	assert.Equal(t, models.SystemScore, feedback[1].Score)
	assert.Equal(t, "Cancellation confirmed by administrator", feedback[1].Comments)

	_, err = svc.ConfirmCancellation(context.Background(), "t-1", "admin-1", "")
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestTerminalTutoringsCannotReopen(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-1", "tutee-1", models.TutoringCancelled)
	svc := newLifecycleService(w)

	_, err := svc.RequestCancellation(context.Background(), "t-1", "tutor-1", "")
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	_, err = svc.ConfirmCancellation(context.Background(), "t-1", "admin-1", "")
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.TutoringCancelled, w.tutorings["t-1"].Status)
}
