package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleSpecAcceptsFiveAndSixFields(t *testing.T) {
	s := NewSchedulerService(time.UTC, nil)

	for _, spec := range []string{"*/5 * * * *", "0 */5 * * * *", "@every 5m", "@hourly"} {
		_, err := s.ScheduleSpec(spec, func() {})
		assert.NoError(t, err, spec)
	}

	for _, spec := range []string{"every five minutes", "", "* * *"} {
		_, err := s.ScheduleSpec(spec, func() {})
		assert.Error(t, err, spec)
	}
}

func TestSchedulerRunsJob(t *testing.T) {
	s := NewSchedulerService(time.UTC, nil)
	ran := make(chan struct{}, 1)

	id, err := s.ScheduleSpec("@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	assert.False(t, s.Next(id).IsZero())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
