package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/config"
)

func schedulerFor(frequency, at string, now time.Time) *Scheduler {
	s := NewScheduler(nil, config.PipelineSettingsConfig{
		ScheduleFrequency: frequency,
		ScheduleTime:      at,
	})
	s.now = func() time.Time { return now }
	return s
}

func TestDailyScheduleBeforeTriggerTime(t *testing.T) {
	now := time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC)
	s := schedulerFor("daily", "06:00", now)
	assert.Equal(t, time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), s.nextAfter(now))
}

func TestDailyScheduleAfterTriggerTime(t *testing.T) {
	now := time.Date(2025, 6, 2, 7, 30, 0, 0, time.UTC)
	s := schedulerFor("daily", "06:00", now)
	assert.Equal(t, time.Date(2025, 6, 3, 6, 0, 0, 0, time.UTC), s.nextAfter(now))
}

func TestDailyScheduleExactlyAtTriggerTime(t *testing.T) {
	now := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	s := schedulerFor("daily", "06:00", now)
	// A tick landing exactly on the trigger time schedules the next day
	assert.Equal(t, time.Date(2025, 6, 3, 6, 0, 0, 0, time.UTC), s.nextAfter(now))
}

func TestHourlyScheduleTopOfNextHour(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 17, 42, 0, time.UTC)
	s := schedulerFor("hourly", "", now)
	assert.Equal(t, time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC), s.nextAfter(now))
}

func TestWeeklyScheduleRunsOnMonday(t *testing.T) {
	// 2025-06-03 is a Tuesday
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	s := schedulerFor("weekly", "06:00", now)
	next := s.nextAfter(now)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, time.Date(2025, 6, 9, 6, 0, 0, 0, time.UTC), next)
}

func TestWeeklyScheduleSameDayWhenAhead(t *testing.T) {
	// 2025-06-02 is a Monday, before the trigger time
	now := time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC)
	s := schedulerFor("weekly", "06:00", now)
	assert.Equal(t, time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), s.nextAfter(now))
}

func TestWeeklySchedulePastTriggerRollsAWeek(t *testing.T) {
	now := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)
	s := schedulerFor("weekly", "06:00", now)
	assert.Equal(t, time.Date(2025, 6, 9, 6, 0, 0, 0, time.UTC), s.nextAfter(now))
}

func TestInvalidScheduleTimeFallsBack(t *testing.T) {
	now := time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC)
	s := schedulerFor("daily", "26:99", now)
	assert.Equal(t, time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), s.nextAfter(now))
}

func TestNextRunZeroBeforeStart(t *testing.T) {
	s := schedulerFor("daily", "06:00", time.Now())
	assert.True(t, s.NextRun().IsZero())
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	now := time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC)
	s := schedulerFor("hourly", "", now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return !s.NextRun().IsZero() },
		2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), s.NextRun())
}
