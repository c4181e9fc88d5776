package application

import (
	"time"

	"attachke/internal/common"
)

type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under-review"
	StatusShortlisted Status = "shortlisted"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is the embedded fee record for one application. TransactionID is the
// provider-issued checkout request id; it is the only join key the asynchronous
// callback can use, so it is unique across all applications. Re-initiating after
// a failure overwrites it with a fresh id and the old one is abandoned.
type Payment struct {
	Status        PaymentStatus `json:"status"`
	Amount        float64       `json:"amount"`
	TransactionID string        `json:"transaction_id,omitempty"`
	ReceiptNumber string        `json:"receipt_number,omitempty"`
	PhoneNumber   string        `json:"phone_number,omitempty"`
	PaymentDate   *time.Time    `json:"payment_date,omitempty"`
	InitiatedAt   *time.Time    `json:"-"`
}

type Application struct {
	ID            common.UUID `json:"id"`
	OpportunityID common.UUID `json:"opportunity_id"`
	ApplicantID   common.UUID `json:"applicant_id"`

	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Institution string `json:"institution"`
	Course      string `json:"course"`
	CoverLetter string `json:"cover_letter,omitempty"`
	ResumeURL   string `json:"resume_url"`

	Payment Payment `json:"payment"`

	Status          Status       `json:"status"`
	SubmittedAt     *time.Time   `json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty"`
	ReviewedBy      *common.UUID `json:"reviewed_by,omitempty"`
	RejectionReason string       `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Filter struct {
	Status        Status
	OpportunityID common.UUID
	Limit         int
	Offset        int
}

// CanTransition reports whether an admin may move an application from one
// review status to another. Draft applications advance only through payment
// completion; rejected and accepted are terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusSubmitted:
		return to == StatusUnderReview || to == StatusShortlisted || to == StatusAccepted || to == StatusRejected
	case StatusUnderReview:
		return to == StatusShortlisted || to == StatusAccepted || to == StatusRejected
	case StatusShortlisted:
		return to == StatusAccepted || to == StatusRejected
	default:
		return false
	}
}
