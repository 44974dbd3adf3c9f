package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type tutoringFinder interface {
	FindByID(ctx context.Context, id string) (*models.Tutoring, error)
}

// tutoringCacheInvalidator drops cached read models after a write.
type tutoringCacheInvalidator interface {
	InvalidateTutoring(ctx context.Context, tutoring *models.Tutoring)
}

type auditRecorder interface {
	Record(ctx context.Context, log *models.AuditLog)
}

func loadUser(ctx context.Context, users userFinder, id, label string) (*models.User, error) {
	user, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, label+" not found")
		}
		return nil, internalError(err, "failed to load "+label)
	}
	if user == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, label+" not found")
	}
	return user, nil
}

func loadTutoring(ctx context.Context, tutorings tutoringFinder, id string) (*models.Tutoring, error) {
	tutoring, err := tutorings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutoring not found")
		}
		return nil, internalError(err, "failed to load tutoring")
	}
	if tutoring == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "tutoring not found")
	}
	return tutoring, nil
}

func loadRequest(ctx context.Context, requests tutoringRequestFinder, id string) (*models.TutoringRequest, error) {
	request, err := requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutoring request not found")
		}
		return nil, internalError(err, "failed to load tutoring request")
	}
	if request == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "tutoring request not found")
	}
	return request, nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// outcomeLabel turns an operation result into a metrics label.
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return appErrors.FromError(err).Code
}
