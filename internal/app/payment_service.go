package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"attachke/internal/common"
	"attachke/internal/domain/analytics"
	"attachke/internal/domain/application"
	"attachke/internal/events"
	"attachke/internal/mpesa"
)

// Gateway is the slice of the M-Pesa client the reconciliation service needs.
type Gateway interface {
	InitiatePush(ctx context.Context, phoneNumber string, amount float64, accountReference, description string) (*mpesa.PushResult, error)
	QueryStatus(ctx context.Context, transactionID string) (*mpesa.QueryResult, error)
}

// PaymentService owns the authoritative mapping from provider events to
// application and payment state. All transitions go through the repository's
// conditional writes, so a transaction id is honored for exactly one
// pending→terminal transition no matter how callbacks and query fallbacks
// interleave.
type PaymentService struct {
	repo      application.Repository
	gateway   Gateway
	publisher events.Publisher
	analytics analytics.Repository
	logger    *zap.SugaredLogger
	fee       float64
	now       func() time.Time
}

func NewPaymentService(repo application.Repository, gateway Gateway, publisher events.Publisher, analyticsRepo analytics.Repository, logger *zap.SugaredLogger, fee float64) *PaymentService {
	return &PaymentService{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		analytics: analyticsRepo,
		logger:    logger,
		fee:       fee,
		now:       time.Now,
	}
}

type InitiateResult struct {
	CheckoutRequestID string `json:"checkoutRequestId"`
	CustomerMessage   string `json:"customerMessage"`
}

// Initiate pushes the application-fee prompt to the applicant's phone. The
// pending payment is persisted only after the gateway accepts the push, so a
// provider failure leaves no half-written state.
func (s *PaymentService) Initiate(ctx context.Context, applicationID, userID common.UUID, phoneNumber string) (*InitiateResult, error) {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != userID {
		return nil, common.NewError(common.CodeForbidden, "not authorized to pay for this application", nil)
	}
	if app.Payment.Status == application.PaymentCompleted {
		return nil, common.NewError(common.CodeConflict, "payment already completed for this application", nil)
	}

	phone := mpesa.NormalizePhone(phoneNumber)
	result, err := s.gateway.InitiatePush(ctx, phone, s.fee, "APP-"+app.ID.String(), "Application Fee")
	if err != nil {
		return nil, err
	}

	persisted, err := s.repo.SetPaymentPending(ctx, app.ID, phone, result.TransactionID, s.fee, s.now())
	if err != nil {
		return nil, err
	}
	if !persisted {
		// The fee completed between our read and the gateway accept. The
		// fresh transaction id is abandoned; its callback will find no
		// pending row and be ignored.
		s.logger.Warnw("push accepted for already-completed application", "application_id", app.ID, "transaction_id", result.TransactionID)
		return nil, common.NewError(common.CodeConflict, "payment already completed for this application", nil)
	}

	s.logger.Infow("payment initiated", "application_id", app.ID, "transaction_id", result.TransactionID)
	return &InitiateResult{CheckoutRequestID: result.TransactionID, CustomerMessage: result.CustomerMessage}, nil
}

// HandleCallback applies one provider notification. It never returns an error
// for conditions the provider caused (unknown transaction, malformed payload,
// duplicate delivery): the transport layer acknowledges regardless, and an
// error here would only be a reason to retry something unretriable. Errors are
// returned only for our own storage failures, and even those are masked before
// the provider sees them.
func (s *PaymentService) HandleCallback(ctx context.Context, envelope mpesa.CallbackEnvelope) error {
	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		s.logger.Warnw("callback missing checkout request id", "result_code", cb.ResultCode)
		return nil
	}

	app, err := s.repo.GetByTransactionID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			s.logger.Warnw("callback for unknown transaction", "transaction_id", cb.CheckoutRequestID)
			return nil
		}
		return err
	}

	// Duplicate delivery: the payment already reached a terminal state.
	if app.Payment.Status != application.PaymentPending {
		s.logger.Infow("callback for settled payment ignored", "transaction_id", cb.CheckoutRequestID, "payment_status", app.Payment.Status)
		return nil
	}

	if cb.ResultCode == 0 {
		return s.completePayment(ctx, app, cb.CheckoutRequestID, cb.ReceiptNumber(), cb)
	}
	return s.failPayment(ctx, app, cb.CheckoutRequestID, cb.ResultDesc)
}

func (s *PaymentService) completePayment(ctx context.Context, app *application.Application, transactionID, receipt string, cb mpesa.StkCallback) error {
	amount := app.Payment.Amount
	if confirmed, ok := cb.Amount(); ok {
		amount = confirmed
	}
	transitioned, err := s.repo.CompletePayment(ctx, transactionID, receipt, amount, s.now())
	if err != nil {
		return err
	}
	if !transitioned {
		// A concurrent delivery or the query fallback won the transition.
		s.logger.Infow("completion already applied", "transaction_id", transactionID)
		return nil
	}

	s.logger.Infow("payment completed", "application_id", app.ID, "transaction_id", transactionID, "receipt", receipt)
	s.publisher.Publish(events.TopicPaymentCompleted, map[string]any{
		"application_id": app.ID,
		"transaction_id": transactionID,
		"receipt_number": receipt,
		"amount":         amount,
	})
	// Fee completion is what submits the application, so the submission event
	// rides the same transition.
	s.publisher.Publish(events.TopicApplicationSubmitted, map[string]any{
		"application_id": app.ID,
		"opportunity_id": app.OpportunityID,
		"applicant_id":   app.ApplicantID,
	})
	_ = s.analytics.Create(ctx, analytics.Event{Name: "payment.completed", UserID: &app.ApplicantID, Payload: map[string]string{
		"application_id": app.ID.String(),
		"transaction_id": transactionID,
	}})
	return nil
}

func (s *PaymentService) failPayment(ctx context.Context, app *application.Application, transactionID, reason string) error {
	transitioned, err := s.repo.FailPayment(ctx, transactionID)
	if err != nil {
		return err
	}
	if !transitioned {
		s.logger.Infow("failure already applied", "transaction_id", transactionID)
		return nil
	}

	s.logger.Infow("payment failed", "application_id", app.ID, "transaction_id", transactionID, "reason", reason)
	s.publisher.Publish(events.TopicPaymentFailed, map[string]any{
		"application_id": app.ID,
		"transaction_id": transactionID,
		"reason":         reason,
	})
	_ = s.analytics.Create(ctx, analytics.Event{Name: "payment.failed", UserID: &app.ApplicantID, Payload: map[string]string{
		"application_id": app.ID.String(),
		"transaction_id": transactionID,
	}})
	return nil
}

type PaymentStatusResult struct {
	PaymentStatus     application.PaymentStatus `json:"paymentStatus"`
	ApplicationStatus application.Status        `json:"applicationStatus"`
	Payment           application.Payment       `json:"payment"`
}

// CheckStatus is a pure read; it never touches the provider.
func (s *PaymentService) CheckStatus(ctx context.Context, applicationID, userID common.UUID) (*PaymentStatusResult, error) {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != userID {
		return nil, common.NewError(common.CodeForbidden, "not authorized to view this payment", nil)
	}
	return &PaymentStatusResult{
		PaymentStatus:     app.Payment.Status,
		ApplicationStatus: app.Status,
		Payment:           app.Payment,
	}, nil
}

// ReconcilePending resolves payments whose callback never arrived by asking
// the provider directly. Transitions reuse the same conditional writes as the
// callback path, so a late callback racing the query cannot double-apply.
func (s *PaymentService) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) {
	cutoff := s.now().Add(-olderThan)
	stale, err := s.repo.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		s.logger.Errorw("failed to list stale pending payments", "error", err)
		return
	}
	for _, app := range stale {
		result, err := s.gateway.QueryStatus(ctx, app.Payment.TransactionID)
		if err != nil {
			s.logger.Warnw("status query failed", "application_id", app.ID, "transaction_id", app.Payment.TransactionID, "error", err)
			continue
		}
		if result.Success {
			// The query endpoint reports no receipt number; the field stays
			// empty unless a late callback already supplied it.
			if err := s.completePayment(ctx, &app, app.Payment.TransactionID, "", mpesa.StkCallback{}); err != nil {
				s.logger.Errorw("failed to reconcile completed payment", "application_id", app.ID, "error", err)
			}
			continue
		}
		if err := s.failPayment(ctx, &app, app.Payment.TransactionID, result.ResultDesc); err != nil {
			s.logger.Errorw("failed to reconcile failed payment", "application_id", app.ID, "error", err)
		}
	}
}
