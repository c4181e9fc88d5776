package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"attachke/internal/common"
	"attachke/internal/domain/opportunity"
)

const opportunityColumns = `id, company, title, description, opportunity_type, category, location, duration,
	requirements, benefits, positions, application_deadline, stipend, apply_url, source, status, posted_by, created_at, updated_at`

type OpportunityRepository struct {
	db *sql.DB
}

func NewOpportunityRepository(db *sql.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

func (r *OpportunityRepository) Create(ctx context.Context, o opportunity.Opportunity) (*opportunity.Opportunity, error) {
	o.ID = common.NewUUID()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO opportunities (id, company, title, description, opportunity_type, category, location, duration,
		requirements, benefits, positions, application_deadline, stipend, apply_url, source, status, posted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		o.ID, o.Company, o.Title, o.Description, o.Type, o.Category, o.Location, o.Duration,
		pq.Array(o.Requirements), pq.Array(o.Benefits), o.Positions, o.Deadline, o.Stipend, o.ApplyURL, o.Source, o.Status, uuidPtr(o.PostedBy), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create opportunity", err)
	}
	return &o, nil
}

func (r *OpportunityRepository) Update(ctx context.Context, o opportunity.Opportunity) (*opportunity.Opportunity, error) {
	o.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `UPDATE opportunities SET company = $1, title = $2, description = $3, opportunity_type = $4, category = $5,
		location = $6, duration = $7, requirements = $8, benefits = $9, positions = $10, application_deadline = $11, stipend = $12, apply_url = $13, status = $14, updated_at = $15
		WHERE id = $16`,
		o.Company, o.Title, o.Description, o.Type, o.Category,
		o.Location, o.Duration, pq.Array(o.Requirements), pq.Array(o.Benefits), o.Positions, o.Deadline, o.Stipend, o.ApplyURL, o.Status, o.UpdatedAt, o.ID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update opportunity", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "opportunity not found", sql.ErrNoRows)
	}
	return &o, nil
}

func (r *OpportunityRepository) UpdateStatus(ctx context.Context, id common.UUID, status opportunity.Status) (*opportunity.Opportunity, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE opportunities SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update opportunity status", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "opportunity not found", sql.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

func (r *OpportunityRepository) GetByID(ctx context.Context, id common.UUID) (*opportunity.Opportunity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1`, id)
	o, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "opportunity not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load opportunity", err)
	}
	return o, nil
}

func (r *OpportunityRepository) ListActive(ctx context.Context, filter opportunity.Filter) ([]opportunity.Opportunity, int, error) {
	where := `WHERE status = $1 AND application_deadline >= NOW()
		AND ($2 = '' OR opportunity_type = $2 OR opportunity_type = 'both')
		AND ($3 = '' OR category = $3)
		AND ($4 = '' OR location ILIKE '%' || $4 || '%')
		AND ($5 = '' OR title ILIKE '%' || $5 || '%' OR description ILIKE '%' || $5 || '%' OR company ILIKE '%' || $5 || '%')`
	args := []any{opportunity.StatusActive, string(filter.Type), filter.Category, filter.Location, filter.Search}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities `+where, args...).Scan(&total); err != nil {
		return nil, 0, common.NewError(common.CodeInternal, "failed to count opportunities", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 12
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+opportunityColumns+` FROM opportunities `+where+` ORDER BY created_at DESC LIMIT $6 OFFSET $7`,
		append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, common.NewError(common.CodeInternal, "failed to list opportunities", err)
	}
	defer rows.Close()
	items, err := collectOpportunities(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *OpportunityRepository) ListAll(ctx context.Context, filter opportunity.Filter) ([]opportunity.Opportunity, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+opportunityColumns+` FROM opportunities
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list opportunities", err)
	}
	defer rows.Close()
	return collectOpportunities(rows)
}

func (r *OpportunityRepository) ExistsByTitleAndCompany(ctx context.Context, title, company string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM opportunities WHERE title = $1 AND company = $2)`, title, company).Scan(&exists); err != nil {
		return false, common.NewError(common.CodeInternal, "failed to check opportunity existence", err)
	}
	return exists, nil
}

func (r *OpportunityRepository) CountByStatus(ctx context.Context, status opportunity.Status) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities WHERE status = $1`, status).Scan(&count); err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to count opportunities", err)
	}
	return count, nil
}

func (r *OpportunityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&count); err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to count opportunities", err)
	}
	return count, nil
}

func (r *OpportunityRepository) CountBySource(ctx context.Context) (map[opportunity.Source]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM opportunities GROUP BY source`)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to aggregate opportunities", err)
	}
	defer rows.Close()
	breakdown := make(map[opportunity.Source]int)
	for rows.Next() {
		var source opportunity.Source
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan aggregate", err)
		}
		breakdown[source] = count
	}
	return breakdown, nil
}

func scanOpportunity(row rowScanner) (*opportunity.Opportunity, error) {
	var o opportunity.Opportunity
	var stipend, applyURL sql.NullString
	var postedBy sql.NullString
	if err := row.Scan(&o.ID, &o.Company, &o.Title, &o.Description, &o.Type, &o.Category, &o.Location, &o.Duration,
		pq.Array(&o.Requirements), pq.Array(&o.Benefits), &o.Positions, &o.Deadline, &stipend, &applyURL, &o.Source, &o.Status, &postedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Stipend = stipend.String
	o.ApplyURL = applyURL.String
	if postedBy.Valid {
		id := common.UUID(postedBy.String)
		o.PostedBy = &id
	}
	return &o, nil
}

func collectOpportunities(rows *sql.Rows) ([]opportunity.Opportunity, error) {
	var items []opportunity.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan opportunity", err)
		}
		items = append(items, *o)
	}
	return items, nil
}

func uuidPtr(id *common.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}
