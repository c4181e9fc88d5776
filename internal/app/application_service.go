package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"attachke/internal/common"
	"attachke/internal/domain/application"
	"attachke/internal/domain/opportunity"
	"attachke/internal/domain/user"
)

type ApplicationService struct {
	repo          application.Repository
	opportunities opportunity.Repository
	logger        *zap.SugaredLogger
}

func NewApplicationService(repo application.Repository, opportunities opportunity.Repository, logger *zap.SugaredLogger) *ApplicationService {
	return &ApplicationService{repo: repo, opportunities: opportunities, logger: logger}
}

type ApplicationInput struct {
	OpportunityID common.UUID `json:"opportunityId"`
	FirstName     string      `json:"firstName"`
	LastName      string      `json:"lastName"`
	Email         string      `json:"email"`
	PhoneNumber   string      `json:"phoneNumber"`
	Institution   string      `json:"institution"`
	Course        string      `json:"course"`
	CoverLetter   string      `json:"coverLetter"`
	ResumeURL     string      `json:"resumeUrl"`
}

func (in ApplicationInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.FirstName) == "" {
		fields["firstName"] = "first name is required"
	}
	if strings.TrimSpace(in.LastName) == "" {
		fields["lastName"] = "last name is required"
	}
	if !strings.Contains(in.Email, "@") {
		fields["email"] = "a valid email address is required"
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		fields["phoneNumber"] = "phone number is required"
	}
	if strings.TrimSpace(in.Institution) == "" {
		fields["institution"] = "institution is required"
	}
	if strings.TrimSpace(in.Course) == "" {
		fields["course"] = "course is required"
	}
	if strings.TrimSpace(in.ResumeURL) == "" {
		fields["resumeUrl"] = "resume is required"
	}
	if len(fields) > 0 {
		return common.NewValidationError("invalid application details", fields)
	}
	return nil
}

// Create opens a draft application. The draft becomes a submitted application
// only when the application fee clears; until then admins never see it.
func (s *ApplicationService) Create(ctx context.Context, input ApplicationInput, applicantID common.UUID, fee float64) (*application.Application, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	opp, err := s.opportunities.GetByID(ctx, input.OpportunityID)
	if err != nil {
		return nil, err
	}
	if opp.Status != opportunity.StatusActive || opp.Deadline.Before(time.Now()) {
		return nil, common.NewError(common.CodeConflict, "opportunity is not accepting applications", nil)
	}

	if existing, err := s.repo.FindByOpportunityAndApplicant(ctx, input.OpportunityID, applicantID); err == nil {
		if existing.Status != application.StatusDraft {
			return nil, common.NewError(common.CodeConflict, "you have already applied to this opportunity", nil)
		}
		// A pre-payment draft is resumable; hand it back instead of duplicating.
		return existing, nil
	} else if !common.Is(err, common.CodeNotFound) {
		return nil, err
	}

	created, err := s.repo.Create(ctx, application.Application{
		OpportunityID: input.OpportunityID,
		ApplicantID:   applicantID,
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		Email:         strings.TrimSpace(input.Email),
		PhoneNumber:   strings.TrimSpace(input.PhoneNumber),
		Institution:   strings.TrimSpace(input.Institution),
		Course:        strings.TrimSpace(input.Course),
		CoverLetter:   input.CoverLetter,
		ResumeURL:     input.ResumeURL,
		Status:        application.StatusDraft,
		Payment:       application.Payment{Status: application.PaymentPending, Amount: fee},
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("application drafted", "application_id", created.ID, "opportunity_id", created.OpportunityID)
	return created, nil
}

// Update lets the applicant amend details while the application is still a
// draft; paid applications are frozen for review.
func (s *ApplicationService) Update(ctx context.Context, id common.UUID, input ApplicationInput, applicantID common.UUID) (*application.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != applicantID {
		return nil, common.NewError(common.CodeForbidden, "not authorized to edit this application", nil)
	}
	if app.Status != application.StatusDraft {
		return nil, common.NewError(common.CodeConflict, "submitted applications cannot be edited", nil)
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	app.FirstName = strings.TrimSpace(input.FirstName)
	app.LastName = strings.TrimSpace(input.LastName)
	app.Email = strings.TrimSpace(input.Email)
	app.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	app.Institution = strings.TrimSpace(input.Institution)
	app.Course = strings.TrimSpace(input.Course)
	app.CoverLetter = input.CoverLetter
	app.ResumeURL = input.ResumeURL
	return s.repo.Update(ctx, *app)
}

// Get allows the owning applicant or any admin.
func (s *ApplicationService) Get(ctx context.Context, id, userID common.UUID, role user.Role) (*application.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != userID && role != user.RoleAdmin {
		return nil, common.NewError(common.CodeForbidden, "not authorized to view this application", nil)
	}
	return app, nil
}

func (s *ApplicationService) ListMine(ctx context.Context, applicantID common.UUID) ([]application.Application, error) {
	return s.repo.ListByApplicant(ctx, applicantID)
}

// ListForReview is the admin queue; drafts are excluded unless asked for.
func (s *ApplicationService) ListForReview(ctx context.Context, filter application.Filter) ([]application.Application, int, error) {
	return s.repo.List(ctx, filter)
}

// Review moves an application along the admin pipeline, enforcing the allowed
// status transitions. A rejection requires a reason.
func (s *ApplicationService) Review(ctx context.Context, id common.UUID, status application.Status, reviewedBy common.UUID, rejectionReason string) (*application.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !application.CanTransition(app.Status, status) {
		return nil, common.NewError(common.CodeConflict, "cannot move application from "+string(app.Status)+" to "+string(status), nil)
	}
	if status == application.StatusRejected && strings.TrimSpace(rejectionReason) == "" {
		return nil, common.NewValidationError("a rejection reason is required", map[string]string{"rejectionReason": "required"})
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status, reviewedBy, rejectionReason)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("application reviewed", "application_id", id, "status", status, "reviewed_by", reviewedBy)
	return updated, nil
}
