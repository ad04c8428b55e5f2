package contract

import (
	"context"

	"ai-assistant-be/internal/entity"
)

type UserFactRepository interface {
	Create(ctx context.Context, fact *entity.UserFact) error
	FindBySession(ctx context.Context, sessionId string, limit int) ([]*entity.UserFact, error)
}
