package user

import (
	"context"

	"attachke/internal/common"
)

type Repository interface {
	Create(ctx context.Context, u User) (*User, error)
	GetByID(ctx context.Context, id common.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	CountByRole(ctx context.Context, role Role) (int, error)
}
