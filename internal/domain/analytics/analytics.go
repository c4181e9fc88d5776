package analytics

import (
	"context"
	"time"

	"attachke/internal/common"
)

type Event struct {
	ID        common.UUID       `json:"id"`
	Name      string            `json:"name"`
	UserID    *common.UUID      `json:"user_id,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
