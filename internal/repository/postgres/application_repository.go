package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attachke/internal/common"
	"attachke/internal/domain/application"
)

const applicationColumns = `id, opportunity_id, applicant_id, first_name, last_name, email, phone_number,
	institution, course, cover_letter, resume_url,
	payment_status, payment_amount, payment_transaction_id, payment_receipt_number, payment_phone_number, payment_date, payment_initiated_at,
	status, submitted_at, reviewed_at, reviewed_by, rejection_reason, created_at, updated_at`

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	app.ID = common.NewUUID()
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO applications (id, opportunity_id, applicant_id, first_name, last_name, email, phone_number,
		institution, course, cover_letter, resume_url, payment_status, payment_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		app.ID, app.OpportunityID, app.ApplicantID, app.FirstName, app.LastName, app.Email, app.PhoneNumber,
		app.Institution, app.Course, app.CoverLetter, app.ResumeURL, app.Payment.Status, app.Payment.Amount, app.Status, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create application", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) Update(ctx context.Context, app application.Application) (*application.Application, error) {
	app.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `UPDATE applications SET first_name = $1, last_name = $2, email = $3, phone_number = $4,
		institution = $5, course = $6, cover_letter = $7, resume_url = $8, updated_at = $9
		WHERE id = $10`,
		app.FirstName, app.LastName, app.Email, app.PhoneNumber,
		app.Institution, app.Course, app.CoverLetter, app.ResumeURL, app.UpdatedAt, app.ID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update application", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "application not found", sql.ErrNoRows)
	}
	return r.GetByID(ctx, app.ID)
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load application", err)
	}
	return app, nil
}

func (r *ApplicationRepository) GetByTransactionID(ctx context.Context, transactionID string) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE payment_transaction_id = $1`, transactionID)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load application", err)
	}
	return app, nil
}

func (r *ApplicationRepository) FindByOpportunityAndApplicant(ctx context.Context, opportunityID, applicantID common.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE opportunity_id = $1 AND applicant_id = $2`, opportunityID, applicantID)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load application", err)
	}
	return app, nil
}

func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID common.UUID) ([]application.Application, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE applicant_id = $1 ORDER BY created_at DESC`, applicantID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list applications", err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

func (r *ApplicationRepository) List(ctx context.Context, filter application.Filter) ([]application.Application, int, error) {
	where := `WHERE ($1 = '' OR status = $1) AND ($2 = '' OR opportunity_id::text = $2)`
	args := []any{string(filter.Status), filter.OpportunityID.String()}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications `+where, args...).Scan(&total); err != nil {
		return nil, 0, common.NewError(common.CodeInternal, "failed to count applications", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+applicationColumns+` FROM applications `+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, common.NewError(common.CodeInternal, "failed to list applications", err)
	}
	defer rows.Close()
	items, err := collectApplications(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id common.UUID, status application.Status, reviewedBy common.UUID, rejectionReason string) (*application.Application, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `UPDATE applications SET status = $1, reviewed_at = $2, reviewed_by = $3, rejection_reason = $4, updated_at = $2
		WHERE id = $5`,
		status, now, reviewedBy, rejectionReason, id)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update application status", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "application not found", sql.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

func (r *ApplicationRepository) CountByStatus(ctx context.Context, status application.Status) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications WHERE status = $1`, status).Scan(&count); err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to count applications", err)
	}
	return count, nil
}

func (r *ApplicationRepository) StatusBreakdown(ctx context.Context) (map[application.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to aggregate applications", err)
	}
	defer rows.Close()
	breakdown := make(map[application.Status]int)
	for rows.Next() {
		var status application.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan aggregate", err)
		}
		breakdown[status] = count
	}
	return breakdown, nil
}

// SetPaymentPending stamps a freshly issued transaction id. The guard on
// payment_status closes the double-initiate race: once a fee is completed no
// new push may overwrite it.
func (r *ApplicationRepository) SetPaymentPending(ctx context.Context, id common.UUID, phoneNumber, transactionID string, amount float64, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE applications
		SET payment_status = $1, payment_phone_number = $2, payment_transaction_id = $3, payment_amount = $4, payment_initiated_at = $5, updated_at = $5
		WHERE id = $6 AND payment_status <> $7`,
		application.PaymentPending, phoneNumber, transactionID, amount, at.UTC(), id, application.PaymentCompleted)
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to persist pending payment", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to persist pending payment", err)
	}
	return rows > 0, nil
}

// CompletePayment is the single pending→completed transition. The payment
// fields and the application submission are one statement so no reader ever
// observes a completed fee on a draft application.
func (r *ApplicationRepository) CompletePayment(ctx context.Context, transactionID, receiptNumber string, amount float64, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE applications
		SET payment_status = $1, payment_receipt_number = $2, payment_amount = $3, payment_date = $4,
		    status = $5, submitted_at = $4, updated_at = $4
		WHERE payment_transaction_id = $6 AND payment_status = $7`,
		application.PaymentCompleted, receiptNumber, amount, at.UTC(),
		application.StatusSubmitted, transactionID, application.PaymentPending)
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to complete payment", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to complete payment", err)
	}
	return rows > 0, nil
}

func (r *ApplicationRepository) FailPayment(ctx context.Context, transactionID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE applications
		SET payment_status = $1, updated_at = $2
		WHERE payment_transaction_id = $3 AND payment_status = $4`,
		application.PaymentFailed, time.Now().UTC(), transactionID, application.PaymentPending)
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to mark payment failed", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to mark payment failed", err)
	}
	return rows > 0, nil
}

func (r *ApplicationRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]application.Application, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+applicationColumns+` FROM applications
		WHERE payment_status = $1 AND payment_transaction_id IS NOT NULL AND payment_transaction_id <> '' AND payment_initiated_at < $2
		ORDER BY payment_initiated_at ASC LIMIT $3`,
		application.PaymentPending, before.UTC(), limit)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list stale pending payments", err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*application.Application, error) {
	var app application.Application
	var coverLetter, transactionID, receiptNumber, paymentPhone, rejectionReason sql.NullString
	var paymentDate, initiatedAt, submittedAt, reviewedAt sql.NullTime
	var reviewedBy sql.NullString
	if err := row.Scan(&app.ID, &app.OpportunityID, &app.ApplicantID, &app.FirstName, &app.LastName, &app.Email, &app.PhoneNumber,
		&app.Institution, &app.Course, &coverLetter, &app.ResumeURL,
		&app.Payment.Status, &app.Payment.Amount, &transactionID, &receiptNumber, &paymentPhone, &paymentDate, &initiatedAt,
		&app.Status, &submittedAt, &reviewedAt, &reviewedBy, &rejectionReason, &app.CreatedAt, &app.UpdatedAt); err != nil {
		return nil, err
	}
	app.CoverLetter = coverLetter.String
	app.Payment.TransactionID = transactionID.String
	app.Payment.ReceiptNumber = receiptNumber.String
	app.Payment.PhoneNumber = paymentPhone.String
	app.RejectionReason = rejectionReason.String
	if paymentDate.Valid {
		app.Payment.PaymentDate = &paymentDate.Time
	}
	if initiatedAt.Valid {
		app.Payment.InitiatedAt = &initiatedAt.Time
	}
	if submittedAt.Valid {
		app.SubmittedAt = &submittedAt.Time
	}
	if reviewedAt.Valid {
		app.ReviewedAt = &reviewedAt.Time
	}
	if reviewedBy.Valid {
		id := common.UUID(reviewedBy.String)
		app.ReviewedBy = &id
	}
	return &app, nil
}

func collectApplications(rows *sql.Rows) ([]application.Application, error) {
	var items []application.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan application", err)
		}
		items = append(items, *app)
	}
	return items, nil
}
