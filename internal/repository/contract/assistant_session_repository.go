package contract

import (
	"context"

	"ai-assistant-be/internal/entity"
)

type AssistantSessionRepository interface {
	Upsert(ctx context.Context, session *entity.AssistantSession) error
	FindById(ctx context.Context, sessionId string) (*entity.AssistantSession, error)
}
