package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/repository"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// tutoringWorld is an in-memory store that applies the same guards as the
// SQL repositories so services can be tested end to end.
type tutoringWorld struct {
	mu        sync.Mutex
	users     map[string]*models.User
	requests  map[string]*models.TutoringRequest
	tutorings map[string]*models.Tutoring
	feedback  []models.Feedback
	writes    int
	seq       int
	failWrite error
}

func newTutoringWorld() *tutoringWorld {
	w := &tutoringWorld{
		users:     map[string]*models.User{},
		requests:  map[string]*models.TutoringRequest{},
		tutorings: map[string]*models.Tutoring{},
	}
	w.addUser("tutor-1", models.RoleTutor, 2)
	w.addUser("tutor-2", models.RoleTutor, 1)
	w.addUser("tutee-1", models.RoleTutee, 0)
	w.addUser("tutee-2", models.RoleTutee, 0)
	w.addUser("admin-1", models.RoleAdministrator, 1)
	w.requests["req-1"] = &models.TutoringRequest{
		ID:              "req-1",
		TuteeID:         "tutee-1",
		Skills:          pq.StringArray{"algebra", "geometry"},
		NeedDescription: "exam preparation",
		Status:          models.TutoringRequestConversing,
	}
	return w
}

func (w *tutoringWorld) addUser(id string, role models.UserRole, limit int) {
	w.users[id] = &models.User{ID: id, FullName: id, Email: id + "@example.com", Role: role, ActiveTutoringLimit: limit}
}

func (w *tutoringWorld) addTutoring(id, tutorID, tuteeID string, status models.TutoringStatus) *models.Tutoring {
	t := &models.Tutoring{
		ID:              id,
		RequestID:       "req-" + id,
		TutorID:         tutorID,
		TuteeID:         tuteeID,
		Skills:          pq.StringArray{"algebra"},
		StartDate:       fixedNow.Add(-24 * time.Hour),
		ExpectedEndDate: fixedNow.Add(models.TutoringDuration),
		Status:          status,
	}
	w.tutorings[id] = t
	return t
}

func (w *tutoringWorld) addFeedback(tutoringID, evaluatorID string) {
	w.feedback = append(w.feedback, models.Feedback{
		ID:          fmt.Sprintf("fb-%d", len(w.feedback)+1),
		TutoringID:  tutoringID,
		EvaluatorID: evaluatorID,
		Score:       "A",
	})
}

func (w *tutoringWorld) nextID(prefix string) string {
	w.seq++
	return fmt.Sprintf("%s-%d", prefix, w.seq)
}

func (w *tutoringWorld) activeCount(tutorID string) int {
	count := 0
	for _, t := range w.tutorings {
		if t.TutorID == tutorID && t.Status == models.TutoringActive {
			count++
		}
	}
	return count
}

func (w *tutoringWorld) feedbackFor(tutoringID string) []models.Feedback {
	var items []models.Feedback
	for _, f := range w.feedback {
		if f.TutoringID == tutoringID {
			items = append(items, f)
		}
	}
	return items
}

type worldUsers struct{ w *tutoringWorld }

func (s worldUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	user, ok := s.w.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (s worldUsers) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for _, user := range s.w.users {
		if user.ExternalID != nil && *user.ExternalID == externalID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

type worldRequests struct{ w *tutoringWorld }

func (s worldRequests) FindByID(ctx context.Context, id string) (*models.TutoringRequest, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	request, ok := s.w.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *request
	return &clone, nil
}

func (s worldRequests) Create(ctx context.Context, req *models.TutoringRequest) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.w.failWrite != nil {
		return s.w.failWrite
	}
	req.ID = s.w.nextID("req")
	clone := *req
	s.w.requests[req.ID] = &clone
	s.w.writes++
	return nil
}

func (s worldRequests) UpdateStatus(ctx context.Context, id string, from, to models.TutoringRequestStatus, updatedAt time.Time) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	request, ok := s.w.requests[id]
	if !ok || request.Status != from {
		return repository.ErrStatusChanged
	}
	request.Status = to
	request.UpdatedAt = updatedAt
	s.w.writes++
	return nil
}

type worldTutorings struct{ w *tutoringWorld }

func (s worldTutorings) FindByID(ctx context.Context, id string) (*models.Tutoring, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	tutoring, ok := s.w.tutorings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *tutoring
	return &clone, nil
}

func (s worldTutorings) CountActiveByTutor(ctx context.Context, tutorID string) (int, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return s.w.activeCount(tutorID), nil
}

func (s worldTutorings) CreateFromRequest(ctx context.Context, tutoring *models.Tutoring) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.w.failWrite != nil {
		return s.w.failWrite
	}
	tutor, ok := s.w.users[tutoring.TutorID]
	if !ok {
		return sql.ErrNoRows
	}
	if s.w.activeCount(tutor.ID) >= tutor.ActiveTutoringLimit {
		return repository.ErrCapacityReached
	}
	request, ok := s.w.requests[tutoring.RequestID]
	if !ok || request.Status != models.TutoringRequestConversing {
		return repository.ErrStatusChanged
	}
	tutoring.ID = s.w.nextID("tutoring")
	clone := *tutoring
	s.w.tutorings[tutoring.ID] = &clone
	request.Status = models.TutoringRequestAssigned
	request.TutoringID = &clone.ID
	s.w.writes++
	return nil
}

func (s worldTutorings) UpdateStatus(ctx context.Context, params repository.TutoringTransition) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.w.failWrite != nil {
		return s.w.failWrite
	}
	tutoring, ok := s.w.tutorings[params.ID]
	if !ok || tutoring.Status != params.From {
		return repository.ErrStatusChanged
	}
	tutoring.Status = params.To
	tutoring.UpdatedAt = params.UpdatedAt
	if params.FinalReportRef != nil {
		ref := *params.FinalReportRef
		tutoring.FinalReportRef = &ref
	}
	if params.Feedback != nil {
		params.Feedback.ID = s.w.nextID("fb")
		s.w.feedback = append(s.w.feedback, *params.Feedback)
	}
	s.w.writes++
	return nil
}

func (s worldTutorings) List(ctx context.Context, filter models.TutoringFilter) ([]models.Tutoring, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var items []models.Tutoring
	for _, t := range s.w.tutorings {
		if !t.HasParticipant(filter.ParticipantID) {
			continue
		}
		if len(filter.Status) > 0 {
			match := false
			for _, status := range filter.Status {
				match = match || t.Status == status
			}
			if !match {
				continue
			}
		}
		items = append(items, *t)
	}
	return items, nil
}

type worldFeedback struct{ w *tutoringWorld }

func (s worldFeedback) Create(ctx context.Context, feedback *models.Feedback) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.w.failWrite != nil {
		return s.w.failWrite
	}
	feedback.ID = s.w.nextID("fb")
	s.w.feedback = append(s.w.feedback, *feedback)
	s.w.writes++
	return nil
}

func (s worldFeedback) ListByTutoring(ctx context.Context, tutoringID string) ([]models.Feedback, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return s.w.feedbackFor(tutoringID), nil
}

func (s worldFeedback) ListByTutoringAndEvaluator(ctx context.Context, tutoringID, evaluatorID string) ([]models.Feedback, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var items []models.Feedback
	for _, f := range s.w.feedbackFor(tutoringID) {
		if f.EvaluatorID == evaluatorID {
			items = append(items, f)
		}
	}
	return items, nil
}

type auditRecorderStub struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (s *auditRecorderStub) Record(ctx context.Context, log *models.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, log)
}

type cacheInvalidatorStub struct {
	ids []string
}

func (s *cacheInvalidatorStub) InvalidateTutoring(ctx context.Context, tutoring *models.Tutoring) {
	s.ids = append(s.ids, tutoring.ID)
}
