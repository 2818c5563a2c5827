package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todo-scheduler/internal/model"
)

// Reminder list filters.
const (
	ReminderAll     = "all"
	ReminderPending = "pending"
	ReminderSent    = "sent"
	ReminderUnread  = "unread"
)

// ReminderRepository stores reminders and guards the sent transition.
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	if err := r.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

func (r *ReminderRepository) Get(ctx context.Context, id string) (*model.Reminder, error) {
	var reminder model.Reminder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reminder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrReminderNotFound
		}
		return nil, fmt.Errorf("find reminder: %w", err)
	}
	return &reminder, nil
}

// ListUnsent returns reminders that have not been delivered, earliest first.
// A non-positive limit means no limit.
func (r *ReminderRepository) ListUnsent(ctx context.Context, limit int) ([]model.Reminder, error) {
	q := r.db.WithContext(ctx).Where("sent = ?", false).Order("remind_at ASC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var reminders []model.Reminder
	if err := q.Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list unsent reminders: %w", err)
	}
	return reminders, nil
}

func (r *ReminderRepository) ListByOwner(ctx context.Context, ownerID, status string) ([]model.Reminder, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	switch status {
	case ReminderPending:
		q = q.Where("sent = ?", false)
	case ReminderSent:
		q = q.Where("sent = ?", true)
	case ReminderUnread:
		q = q.Where("sent = ? AND read = ?", true, false)
	}
	var reminders []model.Reminder
	if err := q.Order("remind_at DESC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// CountUnread counts delivered reminders the owner has not read yet.
func (r *ReminderRepository) CountUnread(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("owner_id = ? AND sent = ? AND read = ?", ownerID, true, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread reminders: %w", err)
	}
	return n, nil
}

func (r *ReminderRepository) ListByTask(ctx context.Context, taskID string) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at ASC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list task reminders: %w", err)
	}
	return reminders, nil
}

// MarkSent is a compare-and-set on the sent flag. It returns false when the
// reminder was already sent or no longer exists.
func (r *ReminderRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ? AND sent = ?", id, false).
		Updates(map[string]interface{}{
			"sent":    true,
			"sent_at": sentAt.UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark reminder sent: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkRead flags one of the owner's reminders as read. Marking it twice is
// not an error.
func (r *ReminderRepository) MarkRead(ctx context.Context, ownerID, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("read", true)
	if res.Error != nil {
		return fmt.Errorf("mark reminder read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrReminderNotFound
	}
	return nil
}

// MarkAllRead flags every delivered, unread reminder of the owner and
// returns how many changed. Reminders still waiting to fire are left alone.
func (r *ReminderRepository) MarkAllRead(ctx context.Context, ownerID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("owner_id = ? AND sent = ? AND read = ?", ownerID, true, false).
		Update("read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark reminders read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteUnsentForTask drops reminders of a task that have not fired yet.
// Delivered reminders stay as history.
func (r *ReminderRepository) DeleteUnsentForTask(ctx context.Context, taskID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("task_id = ? AND sent = ?", taskID, false).Delete(&model.Reminder{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete unsent reminders: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteForOwner removes one of the owner's reminders, sent or not.
func (r *ReminderRepository) DeleteForOwner(ctx context.Context, ownerID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.Reminder{})
	if res.Error != nil {
		return fmt.Errorf("delete reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrReminderNotFound
	}
	return nil
}

func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Reminder{}).Error; err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}
