package entity

import (
	"time"

	"github.com/google/uuid"
)

type RecentEvent struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId  string    `gorm:"index"`
	EventId    string
	CalendarId string
	Summary    string
	CreatedAt  time.Time `gorm:"index"`
}
