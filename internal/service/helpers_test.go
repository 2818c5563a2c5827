package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"todo-scheduler/internal/clock"
	"todo-scheduler/internal/model"
	"todo-scheduler/internal/repository"
)

var epoch = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*repository.Store, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(epoch)
	db, err := repository.NewDB(repository.Options{
		DSN:          filepath.Join(t.TempDir(), "service.db"),
		MaxOpenConns: 1,
		Clock:        clk,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewStore(db), clk
}

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func ptr[T any](v T) *T {
	return &v
}

type recordingNotifier struct {
	mu       sync.Mutex
	failures int
	calls    []model.Reminder
	tasks    []model.Task
}

var errDeliveryFailed = errors.New("delivery failed")

func (n *recordingNotifier) Notify(ctx context.Context, reminder model.Reminder, task model.Task) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failures > 0 {
		n.failures--
		return errDeliveryFailed
	}
	n.calls = append(n.calls, reminder)
	n.tasks = append(n.tasks, task)
	return nil
}

func (n *recordingNotifier) delivered() []model.Reminder {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.Reminder, len(n.calls))
	copy(out, n.calls)
	return out
}
