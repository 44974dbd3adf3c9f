package models

import (
	"time"

	"github.com/lib/pq"
)

// TutoringStatus enumerates engagement lifecycle states.
type TutoringStatus string

const (
	TutoringActive              TutoringStatus = "ACTIVE"
	TutoringPendingCancellation TutoringStatus = "PENDING_CANCELLATION"
	TutoringCompleted           TutoringStatus = "COMPLETED"
	TutoringCancelled           TutoringStatus = "CANCELLED"
)

// TutoringDuration is the fixed length of an engagement.
const TutoringDuration = 90 * 24 * time.Hour

// Tutoring is an engagement between a tutor and a tutee created from a request.
type Tutoring struct {
	ID              string         `db:"id" json:"id"`
	RequestID       string         `db:"request_id" json:"request_id"`
	TutorID         string         `db:"tutor_id" json:"tutor_id"`
	TuteeID         string         `db:"tutee_id" json:"tutee_id"`
	Skills          pq.StringArray `db:"skills" json:"skills"`
	StartDate       time.Time      `db:"start_date" json:"start_date"`
	ExpectedEndDate time.Time      `db:"expected_end_date" json:"expected_end_date"`
	Status          TutoringStatus `db:"status" json:"status"`
	Objectives      string         `db:"objectives" json:"objectives"`
	FinalReportRef  *string        `db:"final_report_ref" json:"final_report_ref,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether userID is the tutor or the tutee.
func (t *Tutoring) HasParticipant(userID string) bool {
	return t != nil && userID != "" && (t.TutorID == userID || t.TuteeID == userID)
}

// TutoringFilter constrains listing queries.
type TutoringFilter struct {
	ParticipantID string
	Status        []TutoringStatus
	Limit         int
	Offset        int
}
