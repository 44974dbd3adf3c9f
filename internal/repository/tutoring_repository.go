package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutoring-api/internal/models"
)

const tutoringColumns = `id, request_id, tutor_id, tutee_id, skills, start_date, expected_end_date, status, objectives,
       final_report_ref, created_at, updated_at`

// TutoringRepository persists tutoring engagements.
type TutoringRepository struct {
	db *sqlx.DB
}

// NewTutoringRepository constructs the repository.
func NewTutoringRepository(db *sqlx.DB) *TutoringRepository {
	return &TutoringRepository{db: db}
}

// FindByID fetches a tutoring by identifier.
func (r *TutoringRepository) FindByID(ctx context.Context, id string) (*models.Tutoring, error) {
	query := `SELECT ` + tutoringColumns + ` FROM tutorings WHERE id = $1`
	var tutoring models.Tutoring
	if err := r.db.GetContext(ctx, &tutoring, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tutoring: %w", err)
	}
	return &tutoring, nil
}

// CountActiveByTutor returns the number of ACTIVE tutorings held by the tutor.
func (r *TutoringRepository) CountActiveByTutor(ctx context.Context, tutorID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tutorings WHERE tutor_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tutorID, models.TutoringActive); err != nil {
		return 0, fmt.Errorf("count active tutorings: %w", err)
	}
	return count, nil
}

// List returns tutorings where the participant is tutor or tutee, newest first.
func (r *TutoringRepository) List(ctx context.Context, filter models.TutoringFilter) ([]models.Tutoring, error) {
	statuses := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		statuses = append(statuses, string(status))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + tutoringColumns + ` FROM tutorings
WHERE (tutor_id = $1 OR tutee_id = $1) AND (cardinality($2::text[]) = 0 OR status = ANY($2))
ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	var tutorings []models.Tutoring
	if err := r.db.SelectContext(ctx, &tutorings, query, filter.ParticipantID, pq.Array(statuses), limit, offset); err != nil {
		return nil, fmt.Errorf("list tutorings: %w", err)
	}
	return tutorings, nil
}

// CreateFromRequest marks the originating request as ASSIGNED and inserts the
// tutoring in one transaction. The tutor row is locked so concurrent
// assignments for the same tutor serialise on the capacity check.
func (r *TutoringRepository) CreateFromRequest(ctx context.Context, tutoring *models.Tutoring) (err error) {
	if tutoring.ID == "" {
		tutoring.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tutoring.CreatedAt.IsZero() {
		tutoring.CreatedAt = now
	}
	if tutoring.UpdatedAt.IsZero() {
		tutoring.UpdatedAt = tutoring.CreatedAt
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tutoring transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var limit int
	const lockQuery = `SELECT active_tutoring_limit FROM users WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &limit, lockQuery, tutoring.TutorID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock tutor: %w", err)
	}

	var active int
	const countQuery = `SELECT COUNT(*) FROM tutorings WHERE tutor_id = $1 AND status = $2`
	if err = tx.GetContext(ctx, &active, countQuery, tutoring.TutorID, models.TutoringActive); err != nil {
		return fmt.Errorf("count active tutorings: %w", err)
	}
	if active >= limit {
		err = ErrCapacityReached
		return err
	}

	// The request row is claimed before the insert so a competing assignment
	// for the same request waits here and then sees a non-CONVERSING status.
	const assignQuery = `UPDATE tutoring_requests SET status = $1, tutoring_id = $2, updated_at = $3 WHERE id = $4 AND status = $5`
	result, err := tx.ExecContext(ctx, assignQuery,
		models.TutoringRequestAssigned,
		tutoring.ID,
		tutoring.UpdatedAt,
		tutoring.RequestID,
		models.TutoringRequestConversing,
	)
	if err != nil {
		return fmt.Errorf("assign tutoring request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check tutoring request rows: %w", err)
	}
	if rows == 0 {
		err = ErrStatusChanged
		return err
	}

	const insertQuery = `INSERT INTO tutorings
	(id, request_id, tutor_id, tutee_id, skills, start_date, expected_end_date, status, objectives, final_report_ref, created_at, updated_at)
	VALUES (:id, :request_id, :tutor_id, :tutee_id, :skills, :start_date, :expected_end_date, :status, :objectives, :final_report_ref, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, tutoring); err != nil {
		if isUniqueViolation(err) {
			err = ErrStatusChanged
			return err
		}
		return fmt.Errorf("insert tutoring: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tutoring: %w", err)
	}
	return nil
}

// TutoringTransition describes a guarded status change. Feedback, when set,
// is inserted in the same transaction.
type TutoringTransition struct {
	ID             string
	From           models.TutoringStatus
	To             models.TutoringStatus
	FinalReportRef *string
	UpdatedAt      time.Time
	Feedback       *models.Feedback
}

// UpdateStatus applies the transition. It returns ErrStatusChanged when the
// tutoring is no longer in the From status.
func (r *TutoringRepository) UpdateStatus(ctx context.Context, params TutoringTransition) (err error) {
	if params.UpdatedAt.IsZero() {
		params.UpdatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tutoring status transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const updateQuery = `UPDATE tutorings SET status = $1, final_report_ref = COALESCE($2, final_report_ref), updated_at = $3
WHERE id = $4 AND status = $5`
	result, err := tx.ExecContext(ctx, updateQuery, params.To, params.FinalReportRef, params.UpdatedAt, params.ID, params.From)
	if err != nil {
		return fmt.Errorf("update tutoring status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check tutoring update rows: %w", err)
	}
	if rows == 0 {
		err = ErrStatusChanged
		return err
	}

	if params.Feedback != nil {
		if err = insertFeedback(ctx, tx, params.Feedback); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tutoring status: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
