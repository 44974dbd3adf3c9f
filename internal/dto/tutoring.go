package dto

import "github.com/noah-isme/tutoring-api/internal/models"

// SubmitTutoringRequest is the tutee payload for a new tutoring request.
type SubmitTutoringRequest struct {
	Skills          []string `json:"skills" validate:"required,min=1,dive,required"`
	NeedDescription string   `json:"needDescription" validate:"required,max=2000"`
}

// UpdateTutoringRequestStatus moves a request through intake review.
type UpdateTutoringRequestStatus struct {
	Status models.TutoringRequestStatus `json:"status" validate:"required,oneof=PENDING APPROVED CONVERSING REJECTED"`
}

// CreateTutoringRequest assigns a tutor to a conversing request.
type CreateTutoringRequest struct {
	RequestID  string `json:"requestId" binding:"required"`
	TutorID    string `json:"tutorId" binding:"required"`
	Objectives string `json:"objectives"`
}

// CompleteTutoringRequest carries the final report reference.
type CompleteTutoringRequest struct {
	FinalReportRef string `json:"finalReportRef"`
}

// CancellationRequest carries the participant's reason.
type CancellationRequest struct {
	Reason string `json:"reason"`
}

// ConfirmCancellationRequest carries the administrator's comment.
type ConfirmCancellationRequest struct {
	Comment string `json:"comment"`
}

// SubmitFeedbackRequest is a participant's evaluation of a tutoring.
type SubmitFeedbackRequest struct {
	Score    string `json:"score" validate:"required,max=32"`
	Comments string `json:"comments" validate:"max=4000"`
}

// TutoringQuery filters tutoring listings.
type TutoringQuery struct {
	Status []models.TutoringStatus
	Limit  int
	Offset int
}

// TutoringSummary bundles a tutoring with its feedback for exports.
type TutoringSummary struct {
	Tutoring models.Tutoring   `json:"tutoring"`
	Feedback []models.Feedback `json:"feedback"`
}
