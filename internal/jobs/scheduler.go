// Package jobs 提供基于固定时刻的后台任务调度
package jobs

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-chatbot-api/pkg/logger"
	"ai-chatbot-api/pkg/metrics"
)

var tracer = otel.Tracer("jobs")

// Schedule 计算任务的下一次执行时刻
type Schedule interface {
	// Next 返回 after 之后最近的一次执行时刻
	Next(after time.Time) time.Time
}

type dailySchedule struct {
	hour   int
	minute int
}

// DailyAt 每天固定时刻执行
func DailyAt(hour, minute int) Schedule {
	return dailySchedule{hour: hour, minute: minute}
}

func (s dailySchedule) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), s.hour, s.minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

type weeklySchedule struct {
	weekday time.Weekday
	hour    int
	minute  int
}

// WeeklyAt 每周固定星期与时刻执行
func WeeklyAt(weekday time.Weekday, hour, minute int) Schedule {
	return weeklySchedule{weekday: weekday, hour: hour, minute: minute}
}

func (s weeklySchedule) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), s.hour, s.minute, 0, 0, after.Location())
	days := (int(s.weekday) - int(next.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(after) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

type intervalSchedule struct {
	interval time.Duration
}

// Every 按固定间隔执行
func Every(interval time.Duration) Schedule {
	return intervalSchedule{interval: interval}
}

func (s intervalSchedule) Next(after time.Time) time.Time {
	return after.Add(s.interval)
}

// Job 一个可调度的后台任务
type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

// Scheduler 按任务各自的 Schedule 循环触发执行
type Scheduler struct {
	jobs   []Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 创建调度器
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Register 注册任务
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start 为每个任务启动独立的调度循环
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job Job) {
			defer s.wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}

	logger.Info(ctx, "job scheduler started", "jobs", len(s.jobs))
}

// Stop 停止调度并等待在途任务结束
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, job Job) {
	for {
		next := job.Schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) {
	ctx, span := tracer.Start(ctx, "jobs.execute",
		trace.WithAttributes(attribute.String("job.name", job.Name)))
	defer span.End()

	start := time.Now()
	err := job.Run(ctx)
	metrics.JobDuration.WithLabelValues(job.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		metrics.JobRunsTotal.WithLabelValues(job.Name, "error").Inc()
		logger.Error(ctx, "job run failed", err, "job", job.Name)
		return
	}

	metrics.JobRunsTotal.WithLabelValues(job.Name, "success").Inc()
	logger.Info(ctx, "job run completed", "job", job.Name, "duration", time.Since(start).String())
}
