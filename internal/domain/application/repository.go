package application

import (
	"context"
	"time"

	"attachke/internal/common"
)

// Repository persists applications. The payment mutators are conditional
// writes: each one names the payment status it expects to find, and reports
// whether a row actually changed. That keeps every pending→terminal transition
// single-winner under concurrent callback delivery and query-fallback
// reconciliation.
type Repository interface {
	Create(ctx context.Context, app Application) (*Application, error)
	Update(ctx context.Context, app Application) (*Application, error)
	GetByID(ctx context.Context, id common.UUID) (*Application, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Application, error)
	FindByOpportunityAndApplicant(ctx context.Context, opportunityID, applicantID common.UUID) (*Application, error)
	ListByApplicant(ctx context.Context, applicantID common.UUID) ([]Application, error)
	List(ctx context.Context, filter Filter) ([]Application, int, error)
	UpdateStatus(ctx context.Context, id common.UUID, status Status, reviewedBy common.UUID, rejectionReason string) (*Application, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
	StatusBreakdown(ctx context.Context) (map[Status]int, error)

	// SetPaymentPending stamps the phone number and a fresh transaction id and
	// moves the payment to pending. It refuses to touch an application whose
	// fee is already completed.
	SetPaymentPending(ctx context.Context, id common.UUID, phoneNumber, transactionID string, amount float64, at time.Time) (bool, error)

	// CompletePayment finalizes a pending payment and submits the application
	// in one atomic write, keyed on the transaction id. Returns false when the
	// transaction is unknown or no longer pending.
	CompletePayment(ctx context.Context, transactionID, receiptNumber string, amount float64, at time.Time) (bool, error)

	// FailPayment marks a pending payment failed; the application stays draft.
	FailPayment(ctx context.Context, transactionID string) (bool, error)

	// ListStalePending returns applications whose payment has been pending
	// since before the cutoff, for query-fallback reconciliation.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]Application, error)
}
