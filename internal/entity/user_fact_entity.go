package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserFact struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId string    `gorm:"index"`
	Fact      string    `gorm:"type:text"`
	CreatedAt time.Time
}
