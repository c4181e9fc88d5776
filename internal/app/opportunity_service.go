package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"attachke/internal/common"
	"attachke/internal/domain/opportunity"
	"attachke/internal/events"
)

type OpportunityService struct {
	repo      opportunity.Repository
	publisher events.Publisher
	logger    *zap.SugaredLogger
}

func NewOpportunityService(repo opportunity.Repository, publisher events.Publisher, logger *zap.SugaredLogger) *OpportunityService {
	return &OpportunityService{repo: repo, publisher: publisher, logger: logger}
}

type OpportunityInput struct {
	Company      string           `json:"company"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Type         opportunity.Type `json:"type"`
	Category     string           `json:"category"`
	Location     string           `json:"location"`
	Duration     string           `json:"duration"`
	Requirements []string         `json:"requirements"`
	Benefits     []string         `json:"benefits"`
	Positions    int              `json:"positions"`
	Deadline     time.Time        `json:"applicationDeadline"`
	Stipend      string           `json:"stipend"`
	ApplyURL     string           `json:"applyUrl"`
}

func (in OpportunityInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Company) == "" {
		fields["company"] = "company is required"
	}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "description is required"
	}
	switch in.Type {
	case opportunity.TypeInternship, opportunity.TypeAttachment, opportunity.TypeBoth:
	default:
		fields["type"] = "type must be internship, industrial-attachment or both"
	}
	if in.Deadline.Before(time.Now()) {
		fields["applicationDeadline"] = "deadline must be in the future"
	}
	if len(fields) > 0 {
		return common.NewValidationError("invalid opportunity details", fields)
	}
	return nil
}

// List returns active, not-yet-expired listings for the public browse page.
func (s *OpportunityService) List(ctx context.Context, filter opportunity.Filter) ([]opportunity.Opportunity, int, error) {
	return s.repo.ListActive(ctx, filter)
}

// Get hides listings the public should not see; admins use ListAll instead.
func (s *OpportunityService) Get(ctx context.Context, id common.UUID) (*opportunity.Opportunity, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == opportunity.StatusDeleted {
		return nil, common.NewError(common.CodeNotFound, "opportunity not found", nil)
	}
	return o, nil
}

// Create publishes an admin-authored listing immediately; feed imports go
// through the ingest service and land in pending instead.
func (s *OpportunityService) Create(ctx context.Context, input OpportunityInput, createdBy common.UUID) (*opportunity.Opportunity, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	positions := input.Positions
	if positions <= 0 {
		positions = 1
	}
	created, err := s.repo.Create(ctx, opportunity.Opportunity{
		Company:      strings.TrimSpace(input.Company),
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		Type:         input.Type,
		Category:     input.Category,
		Location:     input.Location,
		Duration:     input.Duration,
		Requirements: input.Requirements,
		Benefits:     input.Benefits,
		Positions:    positions,
		Deadline:     input.Deadline,
		Stipend:      input.Stipend,
		ApplyURL:     input.ApplyURL,
		Source:       opportunity.SourceManual,
		Status:       opportunity.StatusActive,
		PostedBy:     &createdBy,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("opportunity created", "opportunity_id", created.ID, "company", created.Company)
	s.publisher.Publish(events.TopicOpportunityPublished, map[string]any{
		"opportunity_id": created.ID,
		"title":          created.Title,
		"company":        created.Company,
	})
	return created, nil
}

func (s *OpportunityService) Update(ctx context.Context, id common.UUID, input OpportunityInput) (*opportunity.Opportunity, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == opportunity.StatusDeleted {
		return nil, common.NewError(common.CodeNotFound, "opportunity not found", nil)
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	existing.Company = strings.TrimSpace(input.Company)
	existing.Title = strings.TrimSpace(input.Title)
	existing.Description = input.Description
	existing.Type = input.Type
	existing.Category = input.Category
	existing.Location = input.Location
	existing.Duration = input.Duration
	existing.Requirements = input.Requirements
	existing.Benefits = input.Benefits
	if input.Positions > 0 {
		existing.Positions = input.Positions
	}
	existing.Deadline = input.Deadline
	existing.Stipend = input.Stipend
	existing.ApplyURL = input.ApplyURL
	return s.repo.Update(ctx, *existing)
}

// Delete is a soft delete so existing applications keep their listing context.
func (s *OpportunityService) Delete(ctx context.Context, id common.UUID) error {
	_, err := s.repo.UpdateStatus(ctx, id, opportunity.StatusDeleted)
	return err
}

// Approve moves a feed-imported listing from pending to active.
func (s *OpportunityService) Approve(ctx context.Context, id common.UUID) (*opportunity.Opportunity, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != opportunity.StatusPending {
		return nil, common.NewError(common.CodeConflict, "only pending opportunities can be approved", nil)
	}
	approved, err := s.repo.UpdateStatus(ctx, id, opportunity.StatusActive)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(events.TopicOpportunityPublished, map[string]any{
		"opportunity_id": approved.ID,
		"title":          approved.Title,
		"company":        approved.Company,
	})
	return approved, nil
}

func (s *OpportunityService) Reject(ctx context.Context, id common.UUID) (*opportunity.Opportunity, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != opportunity.StatusPending {
		return nil, common.NewError(common.CodeConflict, "only pending opportunities can be rejected", nil)
	}
	return s.repo.UpdateStatus(ctx, id, opportunity.StatusRejected)
}

// ListAll is the admin view: every status, no deadline filter.
func (s *OpportunityService) ListAll(ctx context.Context, filter opportunity.Filter) ([]opportunity.Opportunity, error) {
	return s.repo.ListAll(ctx, filter)
}
