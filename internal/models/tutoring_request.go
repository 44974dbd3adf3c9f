package models

import (
	"time"

	"github.com/lib/pq"
)

// TutoringRequestStatus captures the intake workflow of a request.
type TutoringRequestStatus string

const (
	TutoringRequestSubmitted  TutoringRequestStatus = "SUBMITTED"
	TutoringRequestPending    TutoringRequestStatus = "PENDING"
	TutoringRequestApproved   TutoringRequestStatus = "APPROVED"
	TutoringRequestConversing TutoringRequestStatus = "CONVERSING"
	TutoringRequestAssigned   TutoringRequestStatus = "ASSIGNED"
	TutoringRequestRejected   TutoringRequestStatus = "REJECTED"
)

// TutoringRequest is a tutee's ask for tutoring in a set of skills.
// Status ASSIGNED always comes with a non-nil TutoringID.
type TutoringRequest struct {
	ID              string                `db:"id" json:"id"`
	TuteeID         string                `db:"tutee_id" json:"tutee_id"`
	Skills          pq.StringArray        `db:"skills" json:"skills"`
	NeedDescription string                `db:"need_description" json:"need_description"`
	Status          TutoringRequestStatus `db:"status" json:"status"`
	TutoringID      *string               `db:"tutoring_id" json:"tutoring_id,omitempty"`
	CreatedAt       time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time             `db:"updated_at" json:"updated_at"`
}
