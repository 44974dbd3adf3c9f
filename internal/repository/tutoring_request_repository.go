package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-api/internal/models"
)

// TutoringRequestRepository persists tutoring requests.
type TutoringRequestRepository struct {
	db *sqlx.DB
}

// NewTutoringRequestRepository constructs the repository.
func NewTutoringRequestRepository(db *sqlx.DB) *TutoringRequestRepository {
	return &TutoringRequestRepository{db: db}
}

// FindByID fetches a request by identifier.
func (r *TutoringRequestRepository) FindByID(ctx context.Context, id string) (*models.TutoringRequest, error) {
	const query = `SELECT id, tutee_id, skills, need_description, status, tutoring_id, created_at, updated_at
FROM tutoring_requests WHERE id = $1`
	var req models.TutoringRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tutoring request: %w", err)
	}
	return &req, nil
}

// Create inserts a new request row.
func (r *TutoringRequestRepository) Create(ctx context.Context, req *models.TutoringRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.TutoringRequestSubmitted
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt
	const query = `INSERT INTO tutoring_requests (id, tutee_id, skills, need_description, status, tutoring_id, created_at, updated_at)
	VALUES (:id, :tutee_id, :skills, :need_description, :status, :tutoring_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create tutoring request: %w", err)
	}
	return nil
}

// UpdateStatus moves a request from one status to another. It returns
// ErrStatusChanged when the row is no longer in the expected status.
func (r *TutoringRequestRepository) UpdateStatus(ctx context.Context, id string, from, to models.TutoringRequestStatus, updatedAt time.Time) error {
	const query = `UPDATE tutoring_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, updatedAt, id, from)
	if err != nil {
		return fmt.Errorf("update tutoring request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check tutoring request update rows: %w", err)
	}
	if rows == 0 {
		return ErrStatusChanged
	}
	return nil
}
