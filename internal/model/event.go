package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lifecycle event names.
const (
	EventTaskCreated   = "task.created"
	EventTaskCompleted = "task.completed"
	EventTaskDeleted   = "task.deleted"
	EventReminderDue   = "reminder.due"
)

// Event records a task or reminder lifecycle change. Payload holds JSON.
type Event struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"index;size:40;not null"`
	OwnerID   string `gorm:"index;size:64"`
	TaskID    string `gorm:"index;size:36"`
	Payload   string `gorm:"type:text"`
	CreatedAt time.Time
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
