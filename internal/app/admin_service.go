package app

import (
	"context"

	"go.uber.org/zap"

	"attachke/internal/domain/analytics"
	"attachke/internal/domain/application"
	"attachke/internal/domain/opportunity"
	"attachke/internal/domain/user"
)

// AdminService aggregates the numbers behind the admin dashboard.
type AdminService struct {
	users         user.Repository
	opportunities opportunity.Repository
	applications  application.Repository
	analytics     analytics.Repository
	logger        *zap.SugaredLogger
}

func NewAdminService(users user.Repository, opportunities opportunity.Repository, applications application.Repository, analyticsRepo analytics.Repository, logger *zap.SugaredLogger) *AdminService {
	return &AdminService{
		users:         users,
		opportunities: opportunities,
		applications:  applications,
		analytics:     analyticsRepo,
		logger:        logger,
	}
}

type DashboardStats struct {
	Applicants           int                        `json:"applicants"`
	TotalOpportunities   int                        `json:"totalOpportunities"`
	ActiveOpportunities  int                        `json:"activeOpportunities"`
	PendingOpportunities int                        `json:"pendingOpportunities"`
	OpportunitiesBySrc   map[opportunity.Source]int `json:"opportunitiesBySource"`
	ApplicationsByStatus map[application.Status]int `json:"applicationsByStatus"`
	RecentEvents         []analytics.Event          `json:"recentEvents"`
}

func (s *AdminService) Stats(ctx context.Context) (*DashboardStats, error) {
	applicants, err := s.users.CountByRole(ctx, user.RoleApplicant)
	if err != nil {
		return nil, err
	}
	total, err := s.opportunities.Count(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.opportunities.CountByStatus(ctx, opportunity.StatusActive)
	if err != nil {
		return nil, err
	}
	pending, err := s.opportunities.CountByStatus(ctx, opportunity.StatusPending)
	if err != nil {
		return nil, err
	}
	bySource, err := s.opportunities.CountBySource(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.applications.StatusBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.analytics.ListRecent(ctx, 20)
	if err != nil {
		s.logger.Warnw("failed to load recent events", "error", err)
		recent = nil
	}
	return &DashboardStats{
		Applicants:           applicants,
		TotalOpportunities:   total,
		ActiveOpportunities:  active,
		PendingOpportunities: pending,
		OpportunitiesBySrc:   bySource,
		ApplicationsByStatus: byStatus,
		RecentEvents:         recent,
	}, nil
}
