package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"todo-scheduler/internal/model"
)

// EventRepository appends task and reminder lifecycle events.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append stores payload as JSON under the given event name.
func (r *EventRepository) Append(ctx context.Context, name, ownerID, taskID string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", name, err)
	}
	event := model.Event{Name: name, OwnerID: ownerID, TaskID: taskID, Payload: string(data)}
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("append %s: %w", name, err)
	}
	return nil
}

// ListByTask returns the events of a task, oldest first.
func (r *EventRepository) ListByTask(ctx context.Context, taskID string) ([]model.Event, error) {
	var events []model.Event
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at ASC, rowid ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
