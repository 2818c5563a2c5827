package engine

import (
	"time"

	"todo-scheduler/internal/clock"
	"todo-scheduler/internal/model"
)

// DueReminders returns the candidates whose RemindAt is not after now, in
// input order. It never marks anything as sent: that happens only after the
// notification went out.
func DueReminders(candidates []model.Reminder, clk clock.Clock) []model.Reminder {
	now := clk.Now()
	due := make([]model.Reminder, 0, len(candidates))
	for _, r := range candidates {
		if !r.RemindAt.After(now) {
			due = append(due, r)
		}
	}
	return due
}

// ReminderFor builds the unsent reminder for a task that has both a due date
// and a reminder offset. Offsets beyond MaxReminderOffsetMinutes yield none.
func ReminderFor(task model.Task, clk clock.Clock) (*model.Reminder, bool) {
	if !task.HasReminder() || int64(*task.ReminderOffsetMinutes) > model.MaxReminderOffsetMinutes {
		return nil, false
	}
	offset := time.Duration(*task.ReminderOffsetMinutes) * time.Minute
	return &model.Reminder{
		TaskID:    task.ID,
		OwnerID:   task.OwnerID,
		RemindAt:  task.DueAt.Add(-offset).UTC(),
		Sent:      false,
		CreatedAt: clk.Now(),
	}, true
}
