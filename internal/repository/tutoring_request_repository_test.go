package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/models"
)

func TestTutoringRequestRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutoringRequestRepository(db)

	mock.ExpectExec("INSERT INTO tutoring_requests").
		WithArgs(sqlmock.AnyArg(), "tutee-1", sqlmock.AnyArg(), "need help with Go", "SUBMITTED", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.TutoringRequest{TuteeID: "tutee-1", Skills: []string{"go"}, NeedDescription: "need help with Go"}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.TutoringRequestSubmitted, req.Status)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tutee_id", "skills", "need_description", "status", "tutoring_id", "created_at", "updated_at"}).
		AddRow(req.ID, "tutee-1", "{go}", "need help with Go", "ASSIGNED", "tutoring-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tutoring_requests WHERE id = $1")).
		WithArgs(req.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TutoringRequestAssigned, found.Status)
	require.NotNil(t, found.TutoringID)
	assert.Equal(t, "tutoring-1", *found.TutoringID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTutoringRequestRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutoringRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tutoring_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs("PENDING", sqlmock.AnyArg(), "request-1", "SUBMITTED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), "request-1", models.TutoringRequestSubmitted, models.TutoringRequestPending, time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tutoring_requests SET status = $1")).
		WithArgs("APPROVED", sqlmock.AnyArg(), "request-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatus(context.Background(), "request-1", models.TutoringRequestPending, models.TutoringRequestApproved, time.Now())
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
