package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todo-scheduler/internal/model"
	"todo-scheduler/internal/repository"
)

func TestDispatchDueRespectsRemindAt(t *testing.T) {
	store, clk := newTestStore(t)
	tasks := NewTaskService(store, clk, nil)
	notifier := &recordingNotifier{}
	reminders := NewReminderService(store, notifier, clk, nil)
	ctx := context.Background()

	due := ts(t, "2026-01-10T09:00:00Z")
	task, err := tasks.CreateTask(ctx, "owner", TaskInput{Title: "Standup", DueAt: &due, ReminderOffsetMinutes: ptr(15)})
	require.NoError(t, err)

	clk.Set(ts(t, "2026-01-10T08:40:00Z"))
	report, err := reminders.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 0, report.Due)
	assert.Empty(t, notifier.delivered())

	clk.Set(ts(t, "2026-01-10T08:50:00Z"))
	report, err = reminders.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchReport{Candidates: 1, Due: 1, Sent: 1}, report)

	delivered := notifier.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, task.ID, delivered[0].TaskID)

	stored, err := store.Reminders.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Sent)
	require.NotNil(t, stored[0].SentAt)
	assert.True(t, stored[0].SentAt.Equal(clk.Now()))

	report, err = reminders.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchReport{}, report)
	assert.Len(t, notifier.delivered(), 1)

	events, err := store.Events.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventReminderDue, events[len(events)-1].Name)
	assert.Contains(t, events[len(events)-1].Payload, `"minutes_before":15`)
}

func TestDispatchDueRetriesFailedDelivery(t *testing.T) {
	store, clk := newTestStore(t)
	tasks := NewTaskService(store, clk, nil)
	notifier := &recordingNotifier{failures: 1}
	reminders := NewReminderService(store, notifier, clk, zap.NewNop())
	ctx := context.Background()

	due := ts(t, "2026-01-10T08:30:00Z")
	task, err := tasks.CreateTask(ctx, "owner", TaskInput{Title: "Pills", DueAt: &due, ReminderOffsetMinutes: ptr(0)})
	require.NoError(t, err)

	clk.Set(ts(t, "2026-01-10T08:35:00Z"))
	report, err := reminders.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Sent)

	pending, err := store.Reminders.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.False(t, pending[0].Sent)

	report, err = reminders.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Len(t, notifier.delivered(), 1)
}

func TestDispatchDueDropsOrphanedReminders(t *testing.T) {
	store, clk := newTestStore(t)
	notifier := &recordingNotifier{}
	reminders := NewReminderService(store, notifier, clk, nil)
	ctx := context.Background()

	orphan := &model.Reminder{TaskID: "deleted-task", OwnerID: "owner", RemindAt: clk.Now()}
	require.NoError(t, store.Reminders.Create(ctx, orphan))

	report, err := reminders.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Orphaned)
	assert.Empty(t, notifier.delivered())

	_, err = store.Reminders.Get(ctx, orphan.ID)
	assert.ErrorIs(t, err, model.ErrReminderNotFound)
}

func TestDispatchDueSkipsAlreadySent(t *testing.T) {
	store, clk := newTestStore(t)
	tasks := NewTaskService(store, clk, nil)
	ctx := context.Background()

	due := ts(t, "2026-01-10T08:00:00Z")
	task, err := tasks.CreateTask(ctx, "owner", TaskInput{Title: "Race", DueAt: &due, ReminderOffsetMinutes: ptr(0)})
	require.NoError(t, err)
	pending, err := store.Reminders.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	rival := notifierFunc(func(ctx context.Context, r model.Reminder, _ model.Task) error {
		_, err := store.Reminders.MarkSent(ctx, r.ID, clk.Now())
		return err
	})
	reminders := NewReminderService(store, rival, clk, nil)

	report, err := reminders.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Sent)
}

func TestDispatchDueStopsOnCancelledContext(t *testing.T) {
	store, clk := newTestStore(t)
	tasks := NewTaskService(store, clk, nil)
	notifier := &recordingNotifier{}
	reminders := NewReminderService(store, notifier, clk, nil).WithBatchSize(10)

	due := ts(t, "2026-01-10T08:00:00Z")
	_, err := tasks.CreateTask(context.Background(), "owner", TaskInput{Title: "Late", DueAt: &due, ReminderOffsetMinutes: ptr(0)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = reminders.DispatchDue(ctx)
	assert.Error(t, err)
	assert.Empty(t, notifier.delivered())
}

func TestListReminders(t *testing.T) {
	store, clk := newTestStore(t)
	tasks := NewTaskService(store, clk, nil)
	reminders := NewReminderService(store, &recordingNotifier{}, clk, nil)
	ctx := context.Background()

	first := ts(t, "2026-01-10T08:00:00Z")
	second := ts(t, "2026-01-11T08:00:00Z")
	_, err := tasks.CreateTask(ctx, "owner", TaskInput{Title: "a", DueAt: &first, ReminderOffsetMinutes: ptr(0)})
	require.NoError(t, err)
	_, err = tasks.CreateTask(ctx, "owner", TaskInput{Title: "b", DueAt: &second, ReminderOffsetMinutes: ptr(0)})
	require.NoError(t, err)

	_, err = reminders.DispatchDue(ctx)
	require.NoError(t, err)

	all, err := reminders.ListReminders(ctx, "owner", repository.ReminderAll)
	require.NoError(t, err)
	assert.Len(t, all.Reminders, 2)
	assert.EqualValues(t, 1, all.UnreadCount)

	sent, err := reminders.ListReminders(ctx, "owner", repository.ReminderSent)
	require.NoError(t, err)
	require.Len(t, sent.Reminders, 1)
	assert.True(t, sent.Reminders[0].RemindAt.Equal(first))

	pending, err := reminders.ListReminders(ctx, "owner", repository.ReminderPending)
	require.NoError(t, err)
	require.Len(t, pending.Reminders, 1)
	assert.True(t, pending.Reminders[0].RemindAt.Equal(second))
}

func TestReminderReadState(t *testing.T) {
	store, clk := newTestStore(t)
	tasks := NewTaskService(store, clk, nil)
	reminders := NewReminderService(store, &recordingNotifier{}, clk, nil)
	ctx := context.Background()

	for _, due := range []string{"2026-01-10T07:00:00Z", "2026-01-10T07:30:00Z", "2026-01-12T08:00:00Z"} {
		at := ts(t, due)
		_, err := tasks.CreateTask(ctx, "owner", TaskInput{Title: due, DueAt: &at, ReminderOffsetMinutes: ptr(0)})
		require.NoError(t, err)
	}
	report, err := reminders.DispatchDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.Sent)

	unread, err := reminders.ListReminders(ctx, "owner", repository.ReminderUnread)
	require.NoError(t, err)
	require.Len(t, unread.Reminders, 2)
	assert.EqualValues(t, 2, unread.UnreadCount)

	require.NoError(t, reminders.MarkRead(ctx, "owner", unread.Reminders[0].ID))
	require.NoError(t, reminders.MarkRead(ctx, "owner", unread.Reminders[0].ID))
	assert.ErrorIs(t, reminders.MarkRead(ctx, "other", unread.Reminders[1].ID), model.ErrReminderNotFound)

	after, err := reminders.ListReminders(ctx, "owner", repository.ReminderUnread)
	require.NoError(t, err)
	require.Len(t, after.Reminders, 1)
	assert.Equal(t, unread.Reminders[1].ID, after.Reminders[0].ID)

	n, err := reminders.MarkAllRead(ctx, "owner")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	all, err := reminders.ListReminders(ctx, "owner", repository.ReminderAll)
	require.NoError(t, err)
	assert.Zero(t, all.UnreadCount)
	for _, r := range all.Reminders {
		assert.Equal(t, r.Sent, r.Read, "pending reminders stay unread")
	}
}

func TestDeleteReminder(t *testing.T) {
	store, clk := newTestStore(t)
	tasks := NewTaskService(store, clk, nil)
	reminders := NewReminderService(store, &recordingNotifier{}, clk, nil)
	ctx := context.Background()

	due := ts(t, "2026-01-11T08:00:00Z")
	task, err := tasks.CreateTask(ctx, "owner", TaskInput{Title: "x", DueAt: &due, ReminderOffsetMinutes: ptr(30)})
	require.NoError(t, err)
	scheduled, err := store.Reminders.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)

	assert.ErrorIs(t, reminders.DeleteReminder(ctx, "other", scheduled[0].ID), model.ErrReminderNotFound)
	require.NoError(t, reminders.DeleteReminder(ctx, "owner", scheduled[0].ID))
	assert.ErrorIs(t, reminders.DeleteReminder(ctx, "owner", scheduled[0].ID), model.ErrReminderNotFound)

	left, err := store.Reminders.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(nil)
	due := epoch
	err := n.Notify(context.Background(), model.Reminder{ID: "r"}, model.Task{ID: "t", DueAt: &due, ReminderOffsetMinutes: ptr(5)})
	assert.NoError(t, err)
}

type notifierFunc func(ctx context.Context, reminder model.Reminder, task model.Task) error

func (f notifierFunc) Notify(ctx context.Context, reminder model.Reminder, task model.Task) error {
	return f(ctx, reminder, task)
}

func TestDispatchDueHonoursBatchSize(t *testing.T) {
	store, clk := newTestStore(t)
	tasks := NewTaskService(store, clk, nil)
	notifier := &recordingNotifier{}
	reminders := NewReminderService(store, notifier, clk, nil).WithBatchSize(2)
	ctx := context.Background()

	for _, due := range []string{"2026-01-10T07:00:00Z", "2026-01-10T07:10:00Z", "2026-01-10T07:20:00Z"} {
		at := ts(t, due)
		_, err := tasks.CreateTask(ctx, "owner", TaskInput{Title: due, DueAt: &at, ReminderOffsetMinutes: ptr(0)})
		require.NoError(t, err)
	}

	first, err := reminders.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Candidates)
	assert.Equal(t, 2, first.Sent)

	second, err := reminders.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Sent)

	delivered := notifier.delivered()
	require.Len(t, delivered, 3)
	assert.True(t, delivered[2].RemindAt.Equal(ts(t, "2026-01-10T07:20:00Z")))
}
