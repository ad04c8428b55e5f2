package implementation

import (
	"context"
	"time"

	"ai-assistant-be/internal/entity"
	"ai-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserFactRepositoryImpl struct {
	db *gorm.DB
}

func NewUserFactRepository(db *gorm.DB) contract.UserFactRepository {
	return &UserFactRepositoryImpl{db: db}
}

func (r *UserFactRepositoryImpl) Create(ctx context.Context, fact *entity.UserFact) error {
	if fact.Id == uuid.Nil {
		fact.Id = uuid.New()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(fact).Error
}

func (r *UserFactRepositoryImpl) FindBySession(ctx context.Context, sessionId string, limit int) ([]*entity.UserFact, error) {
	if limit <= 0 {
		limit = 20
	}
	var facts []*entity.UserFact
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("created_at DESC").
		Limit(limit).
		Find(&facts).Error
	return facts, err
}
