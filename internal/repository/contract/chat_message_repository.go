package contract

import (
	"context"

	"ai-assistant-be/internal/entity"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindBySession(ctx context.Context, sessionId string, limit int) ([]*entity.ChatMessage, error)
}
