package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User stores the owner identity and the Telegram chat used for reminders.
type User struct {
	ID         string `gorm:"primaryKey;size:64"`
	TelegramID int64  `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
