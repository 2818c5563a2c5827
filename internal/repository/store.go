package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories over one database handle so that services
// can run several writes in a single transaction.
type Store struct {
	db        *gorm.DB
	Users     *UserRepository
	Tags      *TagRepository
	Tasks     *TaskRepository
	Reminders *ReminderRepository
	Events    *EventRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Users:     NewUserRepository(db),
		Tags:      NewTagRepository(db),
		Tasks:     NewTaskRepository(db),
		Reminders: NewReminderRepository(db),
		Events:    NewEventRepository(db),
	}
}

// Atomic runs fn inside a transaction. fn must only use the Store it is
// given; it is rolled back when fn returns an error.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
