package implementation

import (
	"context"
	"errors"
	"time"

	"ai-assistant-be/internal/entity"
	"ai-assistant-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssistantSessionRepositoryImpl struct {
	db *gorm.DB
}

func NewAssistantSessionRepository(db *gorm.DB) contract.AssistantSessionRepository {
	return &AssistantSessionRepositoryImpl{db: db}
}

func (r *AssistantSessionRepositoryImpl) Upsert(ctx context.Context, session *entity.AssistantSession) error {
	now := time.Now()
	session.UpdatedAt = &now
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"workflow_step", "language", "scratch", "updated_at"}),
		}).
		Create(session).Error
}

func (r *AssistantSessionRepositoryImpl) FindById(ctx context.Context, sessionId string) (*entity.AssistantSession, error) {
	var session entity.AssistantSession
	err := r.db.WithContext(ctx).Where("id = ?", sessionId).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
