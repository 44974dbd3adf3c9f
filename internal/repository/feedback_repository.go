package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-api/internal/models"
)

// FeedbackRepository persists tutoring evaluations.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a feedback row.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	return insertFeedback(ctx, r.db, feedback)
}

// ListByTutoringAndEvaluator returns feedback left by one evaluator on a tutoring.
func (r *FeedbackRepository) ListByTutoringAndEvaluator(ctx context.Context, tutoringID, evaluatorID string) ([]models.Feedback, error) {
	const query = `SELECT id, evaluator_id, tutoring_id, evaluation_date, score, comments, created_at
FROM feedbacks WHERE tutoring_id = $1 AND evaluator_id = $2 ORDER BY evaluation_date ASC`
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, query, tutoringID, evaluatorID); err != nil {
		return nil, fmt.Errorf("list feedback by evaluator: %w", err)
	}
	return items, nil
}

// ListByTutoring returns all feedback for a tutoring, oldest first.
func (r *FeedbackRepository) ListByTutoring(ctx context.Context, tutoringID string) ([]models.Feedback, error) {
	const query = `SELECT id, evaluator_id, tutoring_id, evaluation_date, score, comments, created_at
FROM feedbacks WHERE tutoring_id = $1 ORDER BY evaluation_date ASC`
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, query, tutoringID); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}

func insertFeedback(ctx context.Context, exec sqlx.ExtContext, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if feedback.EvaluationDate.IsZero() {
		feedback.EvaluationDate = now
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = now
	}
	const query = `INSERT INTO feedbacks (id, evaluator_id, tutoring_id, evaluation_date, score, comments, created_at)
	VALUES (:id, :evaluator_id, :tutoring_id, :evaluation_date, :score, :comments, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, feedback); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}
