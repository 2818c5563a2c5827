package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reminder is a scheduled notification for a task. It moves from unsent to
// sent exactly once and is never reset. Read is set by the owner once a
// delivered reminder has been seen.
type Reminder struct {
	ID        string    `gorm:"primaryKey;size:36"`
	TaskID    string    `gorm:"index;size:36;not null"`
	OwnerID   string    `gorm:"index;size:64;not null"`
	RemindAt  time.Time `gorm:"index;not null"`
	Sent      bool      `gorm:"index"`
	SentAt    *time.Time
	Read      bool
	CreatedAt time.Time
}

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.RemindAt = r.RemindAt.UTC()
	return nil
}
