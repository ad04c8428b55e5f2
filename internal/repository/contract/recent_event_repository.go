package contract

import (
	"context"

	"ai-assistant-be/internal/entity"
)

type RecentEventRepository interface {
	Create(ctx context.Context, event *entity.RecentEvent) error
	FindRecentBySession(ctx context.Context, sessionId string, limit int) ([]*entity.RecentEvent, error)
}
