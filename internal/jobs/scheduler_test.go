package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyAt_Next(t *testing.T) {
	loc := time.UTC
	schedule := DailyAt(2, 0)

	before := time.Date(2026, 3, 10, 1, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 10, 2, 0, 0, 0, loc), schedule.Next(before))

	after := time.Date(2026, 3, 10, 2, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 11, 2, 0, 0, 0, loc), schedule.Next(after))

	later := time.Date(2026, 3, 10, 23, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 11, 2, 0, 0, 0, loc), schedule.Next(later))
}

func TestWeeklyAt_Next(t *testing.T) {
	loc := time.UTC
	schedule := WeeklyAt(time.Sunday, 1, 0)

	// 2026-03-10 is a Tuesday
	tuesday := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)
	next := schedule.Next(tuesday)
	assert.Equal(t, time.Sunday, next.Weekday())
	assert.Equal(t, time.Date(2026, 3, 15, 1, 0, 0, 0, loc), next)

	// exactly at the scheduled moment rolls over a full week
	sunday := time.Date(2026, 3, 15, 1, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 22, 1, 0, 0, 0, loc), schedule.Next(sunday))

	// same day but before the scheduled time stays on that day
	sundayEarly := time.Date(2026, 3, 15, 0, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 15, 1, 0, 0, 0, loc), schedule.Next(sundayEarly))
}

func TestEvery_Next(t *testing.T) {
	schedule := Every(5 * time.Minute)
	now := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(5*time.Minute), schedule.Next(now))
}

func TestScheduler_FailingJobKeepsRunning(t *testing.T) {
	var runs atomic.Int32

	scheduler := NewScheduler()
	scheduler.Register(Job{
		Name:     "flaky",
		Schedule: Every(10 * time.Millisecond),
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return context.DeadlineExceeded
		},
	})

	scheduler.Start(context.Background())
	defer scheduler.Stop()

	// 任务持续失败也不会中断调度
	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_RunsAndStops(t *testing.T) {
	var runs atomic.Int32

	scheduler := NewScheduler()
	scheduler.Register(Job{
		Name:     "tick",
		Schedule: Every(10 * time.Millisecond),
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	scheduler.Start(context.Background())

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	scheduler.Stop()
	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}
