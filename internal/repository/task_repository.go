package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todo-scheduler/internal/model"
)

// Task list filters.
const (
	StatusAll       = "all"
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// TaskFilter narrows ListByOwner.
type TaskFilter struct {
	Status string
	Limit  int
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create stores a task with its tag links. A second successor for the same
// parent is rejected with ErrDuplicateSuccessor.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && task.ParentTaskID != nil {
			return model.WrapError(model.ErrCodeConflict, model.ErrDuplicateSuccessor.Message, err)
		}
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Preload("Tags").
		Where("owner_id = ? AND id = ?", ownerID, taskID).
		First(&task).Error
	return taskOrNotFound(&task, err)
}

// Get loads a task regardless of owner. It backs the reminder dispatcher,
// which works across owners.
func (r *TaskRepository) Get(ctx context.Context, taskID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Preload("Tags").Where("id = ?", taskID).First(&task).Error
	return taskOrNotFound(&task, err)
}

// SuccessorOf returns the task spawned by completing parentID.
func (r *TaskRepository) SuccessorOf(ctx context.Context, parentID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Preload("Tags").Where("parent_task_id = ?", parentID).First(&task).Error
	return taskOrNotFound(&task, err)
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Preload("Tags").Where("owner_id = ?", ownerID)
	switch filter.Status {
	case StatusPending:
		q = q.Where("completed = ?", false)
	case StatusCompleted:
		q = q.Where("completed = ?", true)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var tasks []model.Task
	if err := q.Order("due_at IS NULL, due_at ASC, created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Complete flips completed from false to true. Only one caller can win: a
// task that is already completed yields ErrTaskAlreadyCompleted.
func (r *TaskRepository) Complete(ctx context.Context, ownerID, taskID string, completedAt time.Time) (*model.Task, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&model.Task{}).
		Where("owner_id = ? AND id = ? AND completed = ?", ownerID, taskID, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": completedAt.UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("complete task: %w", res.Error)
	}

	task, err := r.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, model.ErrTaskAlreadyCompleted
	}
	return task, nil
}

func (r *TaskRepository) UpdateDueAt(ctx context.Context, ownerID, taskID string, dueAt *time.Time) error {
	var value interface{}
	if dueAt != nil {
		value = dueAt.UTC()
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("owner_id = ? AND id = ?", ownerID, taskID).
		Update("due_at", value)
	if res.Error != nil {
		return fmt.Errorf("update due date: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

// Delete removes a task together with its reminders and tag links. Run it
// inside Store.Atomic so the cascade is all-or-nothing.
func (r *TaskRepository) Delete(ctx context.Context, ownerID, taskID string) error {
	task, err := r.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return err
	}

	db := r.db.WithContext(ctx)
	if err := db.Where("task_id = ?", task.ID).Delete(&model.Reminder{}).Error; err != nil {
		return fmt.Errorf("delete reminders: %w", err)
	}
	if err := db.Model(task).Association("Tags").Clear(); err != nil {
		return fmt.Errorf("unlink tags: %w", err)
	}
	if err := db.Where("owner_id = ? AND id = ?", ownerID, taskID).Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func taskOrNotFound(task *model.Task, err error) (*model.Task, error) {
	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, model.ErrTaskNotFound
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}
