package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"attachke/internal/app"
	"attachke/internal/common"
	"attachke/internal/domain/analytics"
	"attachke/internal/domain/application"
)

// callbackRepo serves exactly the two lookups the callback path needs; every
// other repository method is unreachable from the handler under test.
type callbackRepo struct {
	app       *application.Application
	completed bool
}

func (r *callbackRepo) GetByTransactionID(ctx context.Context, transactionID string) (*application.Application, error) {
	if r.app != nil && r.app.Payment.TransactionID == transactionID {
		copied := *r.app
		return &copied, nil
	}
	return nil, common.NewError(common.CodeNotFound, "application not found", nil)
}

func (r *callbackRepo) CompletePayment(ctx context.Context, transactionID, receiptNumber string, amount float64, at time.Time) (bool, error) {
	if r.app == nil || r.app.Payment.TransactionID != transactionID || r.app.Payment.Status != application.PaymentPending {
		return false, nil
	}
	r.app.Payment.Status = application.PaymentCompleted
	r.app.Payment.ReceiptNumber = receiptNumber
	r.app.Status = application.StatusSubmitted
	r.completed = true
	return true, nil
}

func (r *callbackRepo) FailPayment(ctx context.Context, transactionID string) (bool, error) {
	if r.app == nil || r.app.Payment.TransactionID != transactionID || r.app.Payment.Status != application.PaymentPending {
		return false, nil
	}
	r.app.Payment.Status = application.PaymentFailed
	return true, nil
}

func (r *callbackRepo) Create(context.Context, application.Application) (*application.Application, error) {
	return nil, common.NewError(common.CodeInternal, "not implemented", nil)
}
func (r *callbackRepo) Update(context.Context, application.Application) (*application.Application, error) {
	return nil, common.NewError(common.CodeInternal, "not implemented", nil)
}
func (r *callbackRepo) GetByID(context.Context, common.UUID) (*application.Application, error) {
	return nil, common.NewError(common.CodeInternal, "not implemented", nil)
}
func (r *callbackRepo) FindByOpportunityAndApplicant(context.Context, common.UUID, common.UUID) (*application.Application, error) {
	return nil, common.NewError(common.CodeInternal, "not implemented", nil)
}
func (r *callbackRepo) ListByApplicant(context.Context, common.UUID) ([]application.Application, error) {
	return nil, nil
}
func (r *callbackRepo) List(context.Context, application.Filter) ([]application.Application, int, error) {
	return nil, 0, nil
}
func (r *callbackRepo) UpdateStatus(context.Context, common.UUID, application.Status, common.UUID, string) (*application.Application, error) {
	return nil, common.NewError(common.CodeInternal, "not implemented", nil)
}
func (r *callbackRepo) CountByStatus(context.Context, application.Status) (int, error) {
	return 0, nil
}
func (r *callbackRepo) StatusBreakdown(context.Context) (map[application.Status]int, error) {
	return nil, nil
}
func (r *callbackRepo) SetPaymentPending(context.Context, common.UUID, string, string, float64, time.Time) (bool, error) {
	return false, nil
}
func (r *callbackRepo) ListStalePending(context.Context, time.Time, int) ([]application.Application, error) {
	return nil, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}

type noopAnalytics struct{}

func (noopAnalytics) Create(context.Context, analytics.Event) error { return nil }

func (noopAnalytics) ListRecent(context.Context, int) ([]analytics.Event, error) { return nil, nil }

func newCallbackFixture(repo *callbackRepo) *PaymentHandler {
	logger := zap.NewNop().Sugar()
	service := app.NewPaymentService(repo, nil, noopPublisher{}, noopAnalytics{}, logger, 350)
	return NewPaymentHandler(service, nil, logger)
}

func postCallback(t *testing.T, handler *PaymentHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments/mpesa/callback", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Callback(rec, req)
	return rec
}

func assertProviderAck(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var ack struct {
		ResultCode int    `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.ResultCode != 0 || ack.ResultDesc != "Success" {
		t.Errorf("ack = %+v, want success", ack)
	}
}

func TestCallbackAcksMalformedBody(t *testing.T) {
	handler := newCallbackFixture(&callbackRepo{})
	assertProviderAck(t, postCallback(t, handler, "{not json"))
}

func TestCallbackAcksUnknownTransaction(t *testing.T) {
	handler := newCallbackFixture(&callbackRepo{})
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_x","ResultCode":0,"ResultDesc":"ok"}}}`
	assertProviderAck(t, postCallback(t, handler, body))
}

func TestCallbackAppliesSuccess(t *testing.T) {
	repo := &callbackRepo{app: &application.Application{
		ID:          common.NewUUID(),
		ApplicantID: common.NewUUID(),
		Status:      application.StatusDraft,
		Payment: application.Payment{
			Status:        application.PaymentPending,
			Amount:        350,
			TransactionID: "ws_CO_1",
		},
	}}
	handler := newCallbackFixture(repo)

	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"ok",
		"CallbackMetadata":{"Item":[{"Name":"MpesaReceiptNumber","Value":"RX1"},{"Name":"Amount","Value":350}]}}}}`
	assertProviderAck(t, postCallback(t, handler, body))

	if !repo.completed {
		t.Fatal("payment not completed")
	}
	if repo.app.Payment.ReceiptNumber != "RX1" {
		t.Errorf("receipt = %q", repo.app.Payment.ReceiptNumber)
	}
	if repo.app.Status != application.StatusSubmitted {
		t.Errorf("application status = %q", repo.app.Status)
	}
}
