package opportunity

import (
	"context"

	"attachke/internal/common"
)

type Repository interface {
	Create(ctx context.Context, o Opportunity) (*Opportunity, error)
	Update(ctx context.Context, o Opportunity) (*Opportunity, error)
	UpdateStatus(ctx context.Context, id common.UUID, status Status) (*Opportunity, error)
	GetByID(ctx context.Context, id common.UUID) (*Opportunity, error)
	ListActive(ctx context.Context, filter Filter) ([]Opportunity, int, error)
	ListAll(ctx context.Context, filter Filter) ([]Opportunity, error)
	ExistsByTitleAndCompany(ctx context.Context, title, company string) (bool, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
	Count(ctx context.Context) (int, error)
	CountBySource(ctx context.Context) (map[Source]int, error)
}
