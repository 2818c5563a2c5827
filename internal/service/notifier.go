package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"todo-scheduler/internal/model"
)

// Notifier delivers a due reminder to the task owner. A returned error
// leaves the reminder unsent so the next tick retries it.
type Notifier interface {
	Notify(ctx context.Context, reminder model.Reminder, task model.Task) error
}

// LogNotifier writes reminders to the log. It is used when no chat
// transport is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, reminder model.Reminder, task model.Task) error {
	fields := []zap.Field{
		zap.String("reminder_id", reminder.ID),
		zap.String("task_id", task.ID),
		zap.String("owner_id", reminder.OwnerID),
		zap.String("title", task.Title),
		zap.Time("remind_at", reminder.RemindAt),
	}
	if task.DueAt != nil {
		fields = append(fields, zap.Time("due_at", *task.DueAt))
	}
	if task.ReminderOffsetMinutes != nil {
		fields = append(fields, zap.Duration("before", time.Duration(*task.ReminderOffsetMinutes)*time.Minute))
	}
	n.logger.Info("reminder due", fields...)
	return nil
}
