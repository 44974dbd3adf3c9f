package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type activeTutoringCounter interface {
	CountActiveByTutor(ctx context.Context, tutorID string) (int, error)
}

// CapacityPolicy decides whether a tutor can take on another active tutoring.
type CapacityPolicy struct {
	counter activeTutoringCounter
}

// NewCapacityPolicy builds the policy on top of an active tutoring counter.
func NewCapacityPolicy(counter activeTutoringCounter) *CapacityPolicy {
	return &CapacityPolicy{counter: counter}
}

// Check fails with CAPACITY_EXCEEDED when the tutor already holds at least
// ActiveTutoringLimit active tutorings.
func (p *CapacityPolicy) Check(ctx context.Context, tutor *models.User) error {
	count, err := p.counter.CountActiveByTutor(ctx, tutor.ID)
	if err != nil {
		return internalError(err, "failed to count active tutorings")
	}
	if count >= tutor.ActiveTutoringLimit {
		return appErrors.Clone(appErrors.ErrCapacityExceeded,
			fmt.Sprintf("tutor has %d of %d active tutorings", count, tutor.ActiveTutoringLimit))
	}
	return nil
}
