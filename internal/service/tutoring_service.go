package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// openTutoringCacheTTL caps how long a tutoring that can still change status
// stays cached.
const openTutoringCacheTTL = 30 * time.Second

type tutoringReader interface {
	FindByID(ctx context.Context, id string) (*models.Tutoring, error)
	List(ctx context.Context, filter models.TutoringFilter) ([]models.Tutoring, error)
}

// TutoringService serves tutoring reads with optional caching.
type TutoringService struct {
	tutorings tutoringReader
	users     userFinder
	cache     *CacheService
	cacheTTL  time.Duration
	logger    *zap.Logger

	// generation advances on every invalidation; fills loaded under an older
	// generation are not written back.
	generation atomic.Uint64
}

// NewTutoringService constructs the read service.
func NewTutoringService(tutorings tutoringReader, users userFinder, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *TutoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutoringService{tutorings: tutorings, users: users, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func tutoringCacheKey(id string) string {
	return "tutoring:" + id
}

func participantCachePrefix(userID string) string {
	return "tutorings:" + userID + ":"
}

// Get returns a tutoring visible to the caller (participants and administrators).
func (s *TutoringService) Get(ctx context.Context, tutoringID, callerID string) (*models.Tutoring, error) {
	caller, err := loadUser(ctx, s.users, callerID, "caller")
	if err != nil {
		return nil, err
	}

	var cached models.Tutoring
	if hit, _ := s.cache.Get(ctx, tutoringCacheKey(tutoringID), &cached); hit {
		if err := authorizeTutoringRead(&cached, caller); err != nil {
			return nil, err
		}
		return &cached, nil
	}

	generation := s.generation.Load()
	tutoring, err := loadTutoring(ctx, s.tutorings, tutoringID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTutoringRead(tutoring, caller); err != nil {
		return nil, err
	}
	s.fill(ctx, generation, tutoringCacheKey(tutoring.ID), tutoring, s.ttlFor(tutoring.Status))
	return tutoring, nil
}

// List returns tutorings of participantID. Only administrators may list other users.
func (s *TutoringService) List(ctx context.Context, callerID, participantID string, query dto.TutoringQuery) ([]models.Tutoring, error) {
	caller, err := loadUser(ctx, s.users, callerID, "caller")
	if err != nil {
		return nil, err
	}
	if participantID == "" {
		participantID = caller.ID
	}
	if participantID != caller.ID && !caller.IsAdministrator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot list tutorings of another user")
	}

	statuses := make([]string, 0, len(query.Status))
	for _, status := range query.Status {
		statuses = append(statuses, string(status))
	}
	key := fmt.Sprintf("%s%s:%d:%d", participantCachePrefix(participantID), strings.Join(statuses, ","), query.Limit, query.Offset)

	var cached []models.Tutoring
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	generation := s.generation.Load()
	items, err := s.tutorings.List(ctx, models.TutoringFilter{
		ParticipantID: participantID,
		Status:        query.Status,
		Limit:         query.Limit,
		Offset:        query.Offset,
	})
	if err != nil {
		return nil, internalError(err, "failed to list tutorings")
	}
	if items == nil {
		items = []models.Tutoring{}
	}
	ttl := s.cacheTTL
	for _, item := range items {
		ttl = minDuration(ttl, s.ttlFor(item.Status))
	}
	s.fill(ctx, generation, key, items, ttl)
	return items, nil
}

// InvalidateTutoring drops every cached read that may include the tutoring.
func (s *TutoringService) InvalidateTutoring(ctx context.Context, tutoring *models.Tutoring) {
	if tutoring == nil || !s.cache.Enabled() {
		return
	}
	s.generation.Add(1)
	_ = s.cache.Delete(ctx, tutoringCacheKey(tutoring.ID))
	for _, userID := range []string{tutoring.TutorID, tutoring.TuteeID} {
		if userID == "" {
			continue
		}
		_ = s.cache.Invalidate(ctx, participantCachePrefix(userID)+"*")
	}
}

func (s *TutoringService) fill(ctx context.Context, generation uint64, key string, value interface{}, ttl time.Duration) {
	if s.generation.Load() != generation {
		return
	}
	_ = s.cache.Set(ctx, key, value, ttl)
}

// ttlFor keeps terminal tutorings for the configured TTL and open ones for at
// most openTutoringCacheTTL.
func (s *TutoringService) ttlFor(status models.TutoringStatus) time.Duration {
	if status == models.TutoringCompleted || status == models.TutoringCancelled {
		return s.cacheTTL
	}
	return minDuration(s.cacheTTL, openTutoringCacheTTL)
}

func minDuration(a, b time.Duration) time.Duration {
	if a <= 0 {
		return b
	}
	if b < a {
		return b
	}
	return a
}

func authorizeTutoringRead(tutoring *models.Tutoring, caller *models.User) error {
	if caller.IsAdministrator() || tutoring.HasParticipant(caller.ID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "tutoring belongs to other users")
}
