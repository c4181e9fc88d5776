package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"attachke/internal/common"
	"attachke/internal/domain/opportunity"
)

type fakeOpportunityRepo struct {
	mu   sync.Mutex
	opps map[common.UUID]*opportunity.Opportunity
}

func newFakeOpportunityRepo() *fakeOpportunityRepo {
	return &fakeOpportunityRepo{opps: make(map[common.UUID]*opportunity.Opportunity)}
}

func (r *fakeOpportunityRepo) put(o opportunity.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := o
	r.opps[o.ID] = &stored
}

func (r *fakeOpportunityRepo) Create(ctx context.Context, o opportunity.Opportunity) (*opportunity.Opportunity, error) {
	o.ID = common.NewUUID()
	r.put(o)
	copied := o
	return &copied, nil
}

func (r *fakeOpportunityRepo) Update(ctx context.Context, o opportunity.Opportunity) (*opportunity.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.opps[o.ID]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "opportunity not found", nil)
	}
	*existing = o
	copied := o
	return &copied, nil
}

func (r *fakeOpportunityRepo) UpdateStatus(ctx context.Context, id common.UUID, status opportunity.Status) (*opportunity.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.opps[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "opportunity not found", nil)
	}
	o.Status = status
	copied := *o
	return &copied, nil
}

func (r *fakeOpportunityRepo) GetByID(ctx context.Context, id common.UUID) (*opportunity.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.opps[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "opportunity not found", nil)
	}
	copied := *o
	return &copied, nil
}

func (r *fakeOpportunityRepo) ListActive(ctx context.Context, filter opportunity.Filter) ([]opportunity.Opportunity, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []opportunity.Opportunity
	for _, o := range r.opps {
		if o.Status != opportunity.StatusActive || o.Deadline.Before(time.Now()) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(o.Title), strings.ToLower(filter.Search)) {
			continue
		}
		items = append(items, *o)
	}
	return items, len(items), nil
}

func (r *fakeOpportunityRepo) ListAll(ctx context.Context, filter opportunity.Filter) ([]opportunity.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []opportunity.Opportunity
	for _, o := range r.opps {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		items = append(items, *o)
	}
	return items, nil
}

func (r *fakeOpportunityRepo) ExistsByTitleAndCompany(ctx context.Context, title, company string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.opps {
		if o.Title == title && o.Company == company {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOpportunityRepo) CountByStatus(ctx context.Context, status opportunity.Status) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, o := range r.opps {
		if o.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeOpportunityRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.opps), nil
}

func (r *fakeOpportunityRepo) CountBySource(ctx context.Context) (map[opportunity.Source]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	breakdown := make(map[opportunity.Source]int)
	for _, o := range r.opps {
		breakdown[o.Source]++
	}
	return breakdown, nil
}

func newOpportunityFixture() (*OpportunityService, *fakeOpportunityRepo, *fakePublisher) {
	repo := newFakeOpportunityRepo()
	publisher := &fakePublisher{}
	return NewOpportunityService(repo, publisher, zap.NewNop().Sugar()), repo, publisher
}

func validOpportunityInput() OpportunityInput {
	return OpportunityInput{
		Company:     "Acme Ltd",
		Title:       "Software Engineering Intern",
		Description: "Build things.",
		Type:        opportunity.TypeInternship,
		Category:    "Technology",
		Location:    "Nairobi",
		Duration:    "3 months",
		Positions:   2,
		Deadline:    time.Now().Add(14 * 24 * time.Hour),
	}
}

func activeOpportunity() opportunity.Opportunity {
	return opportunity.Opportunity{
		ID:       common.NewUUID(),
		Company:  "Acme Ltd",
		Title:    "Software Engineering Intern",
		Type:     opportunity.TypeInternship,
		Status:   opportunity.StatusActive,
		Deadline: time.Now().Add(14 * 24 * time.Hour),
	}
}

func TestCreateOpportunityGoesLiveImmediately(t *testing.T) {
	service, _, publisher := newOpportunityFixture()
	created, err := service.Create(context.Background(), validOpportunityInput(), common.NewUUID())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != opportunity.StatusActive {
		t.Errorf("status = %q, want active", created.Status)
	}
	if created.Source != opportunity.SourceManual {
		t.Errorf("source = %q, want manual", created.Source)
	}
	if len(publisher.topics) != 1 || publisher.topics[0] != "opportunities.published" {
		t.Errorf("published topics = %v", publisher.topics)
	}
}

func TestCreateOpportunityValidation(t *testing.T) {
	service, _, _ := newOpportunityFixture()
	input := validOpportunityInput()
	input.Title = ""
	input.Deadline = time.Now().Add(-time.Hour)
	_, err := service.Create(context.Background(), input, common.NewUUID())
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetHidesDeleted(t *testing.T) {
	service, repo, _ := newOpportunityFixture()
	o := activeOpportunity()
	o.Status = opportunity.StatusDeleted
	repo.put(o)

	if _, err := service.Get(context.Background(), o.ID); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not_found for deleted listing, got %v", err)
	}
}

func TestApproveOnlyPending(t *testing.T) {
	service, repo, publisher := newOpportunityFixture()
	o := activeOpportunity()
	o.Status = opportunity.StatusPending
	repo.put(o)

	approved, err := service.Approve(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != opportunity.StatusActive {
		t.Errorf("status = %q, want active", approved.Status)
	}
	if len(publisher.topics) != 1 {
		t.Errorf("published topics = %v", publisher.topics)
	}

	if _, err := service.Approve(context.Background(), o.ID); !common.Is(err, common.CodeConflict) {
		t.Errorf("re-approve: expected conflict, got %v", err)
	}
}

func TestDeleteIsSoft(t *testing.T) {
	service, repo, _ := newOpportunityFixture()
	o := activeOpportunity()
	repo.put(o)

	if err := service.Delete(context.Background(), o.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	stored, err := repo.GetByID(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("listing gone from storage: %v", err)
	}
	if stored.Status != opportunity.StatusDeleted {
		t.Errorf("status = %q, want deleted", stored.Status)
	}
}
