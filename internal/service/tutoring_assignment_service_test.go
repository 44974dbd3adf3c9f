package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

func newAssignmentService(w *tutoringWorld, opts ...TutoringOption) *TutoringAssignmentService {
	opts = append([]TutoringOption{WithClock(fixedClock)}, opts...)
	return NewTutoringAssignmentService(worldUsers{w}, worldRequests{w}, worldTutorings{w}, zap.NewNop(), opts...)
}

func TestCreateTutoringSuccess(t *testing.T) {
	w := newTutoringWorld()
	audit := &auditRecorderStub{}
	cache := &cacheInvalidatorStub{}
	svc := newAssignmentService(w, WithAuditRecorder(audit), WithTutoringCache(cache))

	tutoring, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-1", "pass the final exam")
	require.NoError(t, err)

	assert.Equal(t, models.TutoringActive, tutoring.Status)
	assert.Equal(t, "tutor-1", tutoring.TutorID)
	assert.Equal(t, "tutee-1", tutoring.TuteeID)
	assert.Equal(t, "req-1", tutoring.RequestID)
	assert.Equal(t, fixedNow, tutoring.StartDate)
	assert.Equal(t, fixedNow.AddDate(0, 0, 90), tutoring.ExpectedEndDate)
	assert.Equal(t, []string{"algebra", "geometry"}, []string(tutoring.Skills))

	request := w.requests["req-1"]
	assert.Equal(t, models.TutoringRequestAssigned, request.Status)
	require.NotNil(t, request.TutoringID)
	assert.Equal(t, tutoring.ID, *request.TutoringID)

	assert.Equal(t, []string{tutoring.ID}, cache.ids)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionTutoringCreate, audit.entries[0].Action)
}

func TestCreateTutoringCopiesSkills(t *testing.T) {
	w := newTutoringWorld()
	svc := newAssignmentService(w)

	tutoring, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-1", "")
	require.NoError(t, err)

	w.requests["req-1"].Skills[0] = "calculus"
	assert.Equal(t, "algebra", tutoring.Skills[0])
	assert.Equal(t, "algebra", w.tutorings[tutoring.ID].Skills[0])
}

func TestCreateTutoringRequiresConversingRequest(t *testing.T) {
	statuses := []models.TutoringRequestStatus{
		models.TutoringRequestSubmitted,
		models.TutoringRequestPending,
		models.TutoringRequestApproved,
		models.TutoringRequestAssigned,
		models.TutoringRequestRejected,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			w := newTutoringWorld()
			w.requests["req-1"].Status = status
			svc := newAssignmentService(w)

			_, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-1", "")
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
			assert.Zero(t, w.writes)
			assert.Empty(t, w.tutorings)
		})
	}
}

func TestCreateTutoringCapacity(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-2", "tutee-2", models.TutoringActive)
	svc := newAssignmentService(w)

	_, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-2", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
	assert.Zero(t, w.writes)
	assert.Equal(t, models.TutoringRequestConversing, w.requests["req-1"].Status)

	w.tutorings["t-1"].Status = models.TutoringCompleted
	tutoring, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-2", "")
	require.NoError(t, err)
	assert.Equal(t, models.TutoringActive, tutoring.Status)
}

func TestCreateTutoringCapacityFreedByCompletion(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-1", "tutee-2", models.TutoringActive)
	w.addTutoring("t-2", "tutor-1", "tutee-2", models.TutoringActive)
	svc := newAssignmentService(w)

	_, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-1", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrCapacityExceeded)
	assert.Len(t, w.tutorings, 2)

	w.tutorings["t-2"].Status = models.TutoringCompleted
	tutoring, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-1", "")
	require.NoError(t, err)
	assert.Equal(t, "tutor-1", tutoring.TutorID)
	assert.Equal(t, 2, w.activeCount("tutor-1"))
}

func TestCreateTutoringConcurrentForLastSlot(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-1", "tutee-2", models.TutoringActive)
	w.requests["req-2"] = &models.TutoringRequest{
		ID:      "req-2",
		TuteeID: "tutee-2",
		Skills:  []string{"physics"},
		Status:  models.TutoringRequestConversing,
	}
	svc := newAssignmentService(w)

	requestIDs := []string{"req-1", "req-2"}
	errs := make([]error, len(requestIDs))
	var wg sync.WaitGroup
	for i, requestID := range requestIDs {
		wg.Add(1)
		go func(i int, requestID string) {
			defer wg.Done()
			_, errs[i] = svc.CreateTutoring(context.Background(), requestID, "tutor-1", "")
		}(i, requestID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, appErrors.ErrCapacityExceeded)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, w.activeCount("tutor-1"))
}

func TestCreateTutoringConcurrentForSameRequest(t *testing.T) {
	w := newTutoringWorld()
	svc := newAssignmentService(w)

	tutorIDs := []string{"tutor-1", "tutor-2"}
	errs := make([]error, len(tutorIDs))
	var wg sync.WaitGroup
	for i, tutorID := range tutorIDs {
		wg.Add(1)
		go func(i int, tutorID string) {
			defer wg.Done()
			_, errs[i] = svc.CreateTutoring(context.Background(), "req-1", tutorID, "")
		}(i, tutorID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, w.tutorings, 1)
	assert.Equal(t, models.TutoringRequestAssigned, w.requests["req-1"].Status)
}

func TestCreateTutoringIgnoresInactiveTutorings(t *testing.T) {
	w := newTutoringWorld()
	w.addTutoring("t-1", "tutor-2", "tutee-2", models.TutoringPendingCancellation)
	w.addTutoring("t-2", "tutor-2", "tutee-2", models.TutoringCancelled)
	svc := newAssignmentService(w)

	_, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-2", "")
	require.NoError(t, err)
}

func TestCreateTutoringZeroLimitRejects(t *testing.T) {
	w := newTutoringWorld()
	w.users["tutor-1"].ActiveTutoringLimit = 0
	svc := newAssignmentService(w)

	_, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
}

func TestCreateTutoringRoleChecks(t *testing.T) {
	w := newTutoringWorld()
	svc := newAssignmentService(w)

	_, err := svc.CreateTutoring(context.Background(), "req-1", "tutee-2", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRole.Code, appErrors.FromError(err).Code)

	tutoring, err := svc.CreateTutoring(context.Background(), "req-1", "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", tutoring.TutorID)
}

func TestCreateTutoringNotFound(t *testing.T) {
	w := newTutoringWorld()
	svc := newAssignmentService(w)

	_, err := svc.CreateTutoring(context.Background(), "req-1", "ghost", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateTutoring(context.Background(), "missing", "tutor-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Zero(t, w.writes)
}

func TestCreateTutoringStoreFailure(t *testing.T) {
	w := newTutoringWorld()
	w.failWrite = errors.New("connection reset")
	svc := newAssignmentService(w)

	_, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestCreateTutoringSecondAssignmentFails(t *testing.T) {
	w := newTutoringWorld()
	svc := newAssignmentService(w)

	_, err := svc.CreateTutoring(context.Background(), "req-1", "tutor-1", "")
	require.NoError(t, err)

	_, err = svc.CreateTutoring(context.Background(), "req-1", "tutor-2", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Len(t, w.tutorings, 1)
}
