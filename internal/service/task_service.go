package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"todo-scheduler/internal/clock"
	"todo-scheduler/internal/engine"
	"todo-scheduler/internal/model"
	"todo-scheduler/internal/recurrence"
	"todo-scheduler/internal/repository"
)

// RecurrenceInput describes a repeat rule as entered by a user.
type RecurrenceInput struct {
	Pattern      string
	IntervalDays int
	EndDate      *time.Time
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title                 string
	Description           string
	Priority              string
	DueAt                 *time.Time
	ReminderOffsetMinutes *int
	Recurrence            *RecurrenceInput
	Tags                  []string
}

// CompletionResult is what completing a task produced. Successor and
// SuccessorReminder are nil when nothing was scheduled.
type CompletionResult struct {
	Task              *model.Task
	Successor         *model.Task
	SuccessorReminder *model.Reminder
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store  *repository.Store
	clock  clock.Clock
	logger *zap.Logger
}

func NewTaskService(store *repository.Store, clk clock.Clock, logger *zap.Logger) *TaskService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{store: store, clock: clk, logger: logger}
}

// CreateTask validates input, stores the task and schedules its reminder.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, input TaskInput) (*model.Task, error) {
	task, err := s.buildTask(ownerID, input)
	if err != nil {
		return nil, err
	}

	err = s.store.Atomic(ctx, func(tx *repository.Store) error {
		tags, err := tx.Tags.Resolve(ctx, ownerID, input.Tags)
		if err != nil {
			return err
		}
		task.Tags = tags

		if err := tx.Tasks.Create(ctx, task); err != nil {
			return err
		}
		if err := s.scheduleReminder(ctx, tx, *task); err != nil {
			return err
		}
		return tx.Events.Append(ctx, model.EventTaskCreated, ownerID, task.ID, map[string]interface{}{
			"title":        task.Title,
			"priority":     task.Priority,
			"is_recurring": task.IsRecurring(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("owner_id", ownerID),
		zap.Bool("recurring", task.IsRecurring()),
	)
	return task, nil
}

// CompleteTask marks a task done and, for recurring tasks, stores the next
// occurrence with its reminder in the same transaction. Completing twice
// fails with ErrTaskAlreadyCompleted and never creates a second successor.
func (s *TaskService) CompleteTask(ctx context.Context, ownerID, taskID string) (*CompletionResult, error) {
	result := &CompletionResult{}

	err := s.store.Atomic(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.Complete(ctx, ownerID, taskID, s.clock.Now())
		if err != nil {
			return err
		}
		result.Task = task

		payload := map[string]interface{}{
			"title":        task.Title,
			"is_recurring": task.IsRecurring(),
		}

		if successor, ok := engine.GenerateSuccessor(*task, s.clock); ok {
			if err := tx.Tasks.Create(ctx, successor); err != nil {
				return err
			}
			result.Successor = successor
			payload["successor_id"] = successor.ID

			if reminder, ok := engine.ReminderFor(*successor, s.clock); ok {
				if err := tx.Reminders.Create(ctx, reminder); err != nil {
					return err
				}
				result.SuccessorReminder = reminder
			}
		}

		return tx.Events.Append(ctx, model.EventTaskCompleted, ownerID, task.ID, payload)
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{zap.String("task_id", taskID), zap.String("owner_id", ownerID)}
	if result.Successor != nil {
		fields = append(fields, zap.String("successor_id", result.Successor.ID), zap.Time("successor_due_at", *result.Successor.DueAt))
	}
	s.logger.Info("task completed", fields...)
	return result, nil
}

// RescheduleTask moves the due date. Reminders that have not fired are
// replaced; delivered ones are kept and never reused.
func (s *TaskService) RescheduleTask(ctx context.Context, ownerID, taskID string, dueAt *time.Time) (*model.Task, error) {
	var task *model.Task
	err := s.store.Atomic(ctx, func(tx *repository.Store) error {
		if err := tx.Tasks.UpdateDueAt(ctx, ownerID, taskID, dueAt); err != nil {
			return err
		}
		if _, err := tx.Reminders.DeleteUnsentForTask(ctx, taskID); err != nil {
			return err
		}

		var err error
		task, err = tx.Tasks.FindByID(ctx, ownerID, taskID)
		if err != nil {
			return err
		}
		if task.Completed {
			return nil
		}
		return s.scheduleReminder(ctx, tx, *task)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task rescheduled", zap.String("task_id", taskID), zap.String("owner_id", ownerID))
	return task, nil
}

// DeleteTask removes a task and every reminder that references it.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	err := s.store.Atomic(ctx, func(tx *repository.Store) error {
		if err := tx.Tasks.Delete(ctx, ownerID, taskID); err != nil {
			return err
		}
		return tx.Events.Append(ctx, model.EventTaskDeleted, ownerID, taskID, map[string]interface{}{})
	})
	if err != nil {
		return err
	}
	s.logger.Info("task deleted", zap.String("task_id", taskID), zap.String("owner_id", ownerID))
	return nil
}

func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	return s.store.Tasks.FindByID(ctx, ownerID, taskID)
}

// Successor returns the task spawned by completing taskID, or nil when the
// chain ends there.
func (s *TaskService) Successor(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	if _, err := s.store.Tasks.FindByID(ctx, ownerID, taskID); err != nil {
		return nil, err
	}
	next, err := s.store.Tasks.SuccessorOf(ctx, taskID)
	if errors.Is(err, model.ErrTaskNotFound) {
		return nil, nil
	}
	return next, err
}

func (s *TaskService) ListTasks(ctx context.Context, ownerID string, filter repository.TaskFilter) ([]model.Task, error) {
	return s.store.Tasks.ListByOwner(ctx, ownerID, filter)
}

func (s *TaskService) scheduleReminder(ctx context.Context, tx *repository.Store, task model.Task) error {
	reminder, ok := engine.ReminderFor(task, s.clock)
	if !ok {
		return nil
	}
	return tx.Reminders.Create(ctx, reminder)
}

func (s *TaskService) buildTask(ownerID string, input TaskInput) (*model.Task, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, model.WrapError(model.ErrCodeInvalid, model.ErrInvalidInput.Message, errors.New("owner is required"))
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.WrapError(model.ErrCodeInvalid, model.ErrInvalidInput.Message, errors.New("title is required"))
	}

	priority, err := model.ParsePriority(input.Priority)
	if err != nil {
		return nil, err
	}

	if offset := input.ReminderOffsetMinutes; offset != nil {
		if *offset < 0 {
			return nil, model.WrapError(model.ErrCodeInvalid, model.ErrInvalidInput.Message,
				fmt.Errorf("reminder offset must not be negative, got %d", *offset))
		}
		if int64(*offset) > model.MaxReminderOffsetMinutes {
			return nil, model.WrapError(model.ErrCodeInvalid, model.ErrInvalidInput.Message,
				fmt.Errorf("reminder offset must be at most %d minutes, got %d", model.MaxReminderOffsetMinutes, *offset))
		}
	}

	task := &model.Task{
		OwnerID:               ownerID,
		Title:                 title,
		Description:           strings.TrimSpace(input.Description),
		Priority:              priority,
		DueAt:                 input.DueAt,
		ReminderOffsetMinutes: input.ReminderOffsetMinutes,
	}

	if input.Recurrence != nil {
		pattern, err := recurrence.ParsePattern(input.Recurrence.Pattern)
		if err != nil {
			return nil, model.WrapError(model.ErrCodeInvalid, model.ErrInvalidInput.Message, err)
		}
		rule, err := recurrence.New(pattern, input.Recurrence.IntervalDays, input.Recurrence.EndDate)
		if err != nil {
			return nil, model.WrapError(model.ErrCodeInvalid, model.ErrInvalidInput.Message, err)
		}
		task.Recurrence = rule
	}

	return task, nil
}
