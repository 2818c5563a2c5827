package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"todo-scheduler/internal/clock"
	"todo-scheduler/internal/engine"
	"todo-scheduler/internal/model"
	"todo-scheduler/internal/repository"
)

// DispatchReport summarizes one reminder tick.
type DispatchReport struct {
	Candidates int
	Due        int
	Sent       int
	Failed     int
	Skipped    int // marked sent by another dispatcher first
	Orphaned   int // task was gone; reminder dropped
}

// ReminderService finds due reminders and hands them to a Notifier.
type ReminderService struct {
	store     *repository.Store
	notifier  Notifier
	clock     clock.Clock
	logger    *zap.Logger
	batchSize int

	mu sync.Mutex
}

func NewReminderService(store *repository.Store, notifier Notifier, clk clock.Clock, logger *zap.Logger) *ReminderService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &ReminderService{store: store, notifier: notifier, clock: clk, logger: logger}
}

// WithBatchSize caps how many unsent reminders one tick loads.
func (s *ReminderService) WithBatchSize(n int) *ReminderService {
	s.batchSize = n
	return s
}

// DispatchDue delivers every reminder whose time has come. A reminder is
// marked sent only after the notifier succeeded, so failures are retried on
// the next tick. Ticks inside one process never overlap.
func (s *ReminderService) DispatchDue(ctx context.Context) (DispatchReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report DispatchReport
	candidates, err := s.store.Reminders.ListUnsent(ctx, s.batchSize)
	if err != nil {
		return report, err
	}
	report.Candidates = len(candidates)

	due := engine.DueReminders(candidates, s.clock)
	report.Due = len(due)

	for _, reminder := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.dispatchOne(ctx, reminder, &report)
	}

	if report.Due > 0 {
		s.logger.Info("reminder tick finished",
			zap.Int("due", report.Due),
			zap.Int("sent", report.Sent),
			zap.Int("failed", report.Failed),
			zap.Int("skipped", report.Skipped),
			zap.Int("orphaned", report.Orphaned),
		)
	}
	return report, nil
}

func (s *ReminderService) dispatchOne(ctx context.Context, reminder model.Reminder, report *DispatchReport) {
	log := s.logger.With(zap.String("reminder_id", reminder.ID), zap.String("task_id", reminder.TaskID))

	task, err := s.store.Tasks.Get(ctx, reminder.TaskID)
	if errors.Is(err, model.ErrTaskNotFound) {
		if err := s.store.Reminders.Delete(ctx, reminder.ID); err != nil {
			log.Error("failed to drop orphaned reminder", zap.Error(err))
			report.Failed++
			return
		}
		log.Warn("dropped reminder of deleted task")
		report.Orphaned++
		return
	}
	if err != nil {
		log.Error("failed to load task for reminder", zap.Error(err))
		report.Failed++
		return
	}

	if err := s.notifier.Notify(ctx, reminder, *task); err != nil {
		log.Warn("reminder delivery failed, will retry", zap.Error(err))
		report.Failed++
		return
	}

	sentAt := s.clock.Now()
	won, err := s.store.Reminders.MarkSent(ctx, reminder.ID, sentAt)
	if err != nil {
		log.Error("failed to mark reminder sent", zap.Error(err))
		report.Failed++
		return
	}
	if !won {
		log.Info("reminder already marked sent elsewhere")
		report.Skipped++
		return
	}
	report.Sent++

	minutesBefore := 0
	if task.ReminderOffsetMinutes != nil {
		minutesBefore = *task.ReminderOffsetMinutes
	}
	if err := s.store.Events.Append(ctx, model.EventReminderDue, reminder.OwnerID, task.ID, map[string]interface{}{
		"reminder_id":    reminder.ID,
		"title":          task.Title,
		"minutes_before": minutesBefore,
		"sent_at":        sentAt,
	}); err != nil {
		log.Warn("failed to record reminder event", zap.Error(err))
	}
}

// ReminderList is one page of an owner's reminders plus the number of
// delivered reminders still unread.
type ReminderList struct {
	Reminders   []model.Reminder
	UnreadCount int64
}

// ListReminders returns an owner's reminders filtered by status
// (all, pending, sent or unread), latest first.
func (s *ReminderService) ListReminders(ctx context.Context, ownerID, status string) (*ReminderList, error) {
	reminders, err := s.store.Reminders.ListByOwner(ctx, ownerID, status)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.Reminders.CountUnread(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &ReminderList{Reminders: reminders, UnreadCount: unread}, nil
}

func (s *ReminderService) MarkRead(ctx context.Context, ownerID, reminderID string) error {
	return s.store.Reminders.MarkRead(ctx, ownerID, reminderID)
}

// MarkAllRead returns how many delivered reminders were newly marked read.
func (s *ReminderService) MarkAllRead(ctx context.Context, ownerID string) (int64, error) {
	n, err := s.store.Reminders.MarkAllRead(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("reminders marked read", zap.String("owner_id", ownerID), zap.Int64("count", n))
	return n, nil
}

func (s *ReminderService) DeleteReminder(ctx context.Context, ownerID, reminderID string) error {
	return s.store.Reminders.DeleteForOwner(ctx, ownerID, reminderID)
}
