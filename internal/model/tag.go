package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tag labels tasks of a single owner. Successors share their parent's tags.
// Names are unique per owner regardless of case; Name keeps the spelling
// first used.
type Tag struct {
	ID        string `gorm:"primaryKey;size:36"`
	OwnerID   string `gorm:"index:idx_owner_tag_key,unique;size:64;not null"`
	Name      string `gorm:"size:50;not null"`
	NameKey   string `gorm:"index:idx_owner_tag_key,unique;size:50;not null" json:"-"`
	CreatedAt time.Time
}

// TagKey is the case-insensitive identity of a tag name.
func TagKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Name = strings.TrimSpace(t.Name)
	t.NameKey = TagKey(t.Name)
	return nil
}
