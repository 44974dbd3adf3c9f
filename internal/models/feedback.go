package models

import "time"

// SystemScore marks feedback rows written by the lifecycle itself.
const SystemScore = "N/A"

// Feedback is a post-session evaluation left on a tutoring.
type Feedback struct {
	ID             string    `db:"id" json:"id"`
	EvaluatorID    string    `db:"evaluator_id" json:"evaluator_id"`
	TutoringID     string    `db:"tutoring_id" json:"tutoring_id"`
	EvaluationDate time.Time `db:"evaluation_date" json:"evaluation_date"`
	Score          string    `db:"score" json:"score"`
	Comments       string    `db:"comments" json:"comments"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
