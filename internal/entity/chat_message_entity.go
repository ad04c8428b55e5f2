package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId string    `gorm:"index"`
	Role      string
	Content   string `gorm:"type:text"`
	ToolName  string
	CreatedAt time.Time
}
