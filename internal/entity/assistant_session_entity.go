package entity

import (
	"time"

	"gorm.io/datatypes"
)

// AssistantSession is the durable snapshot of a conversation's workflow
// state, used to recover an in-flight confirmation after a restart.
type AssistantSession struct {
	Id           string `gorm:"primaryKey"`
	WorkflowStep string
	Language     string
	Scratch      datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt    *time.Time
	CreatedAt    time.Time
}
