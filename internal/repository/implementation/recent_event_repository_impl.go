package implementation

import (
	"context"
	"time"

	"ai-assistant-be/internal/entity"
	"ai-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecentEventRepositoryImpl struct {
	db *gorm.DB
}

func NewRecentEventRepository(db *gorm.DB) contract.RecentEventRepository {
	return &RecentEventRepositoryImpl{db: db}
}

func (r *RecentEventRepositoryImpl) Create(ctx context.Context, event *entity.RecentEvent) error {
	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *RecentEventRepositoryImpl) FindRecentBySession(ctx context.Context, sessionId string, limit int) ([]*entity.RecentEvent, error) {
	if limit <= 0 {
		limit = 5
	}
	var events []*entity.RecentEvent
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
