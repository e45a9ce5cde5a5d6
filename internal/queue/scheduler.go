package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Scheduler runs periodic tasks on a gocron scheduler in UTC
type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a new Scheduler
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Every runs task at the given interval. A run is skipped while the
// previous one is still going.
func (s *Scheduler) Every(interval time.Duration, name string, task func(ctx context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s for %s", interval, name)
	}

	_, err := s.scheduler.Every(interval).Tag(name).SingletonMode().Do(func() {
		if err := task(s.ctx); err != nil {
			zap.L().Error("scheduled task failed", zap.String("task", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// PromoteDelayedJobs periodically moves due delayed and retrying jobs of
// the given types back onto their ready lists
func (s *Scheduler) PromoteDelayedJobs(q *RedisQueue, interval time.Duration, jobTypes ...JobType) error {
	return s.Every(interval, "promote_delayed_jobs", func(ctx context.Context) error {
		for _, jobType := range jobTypes {
			moved, err := q.PromoteDelayed(ctx, jobType)
			if err != nil {
				return fmt.Errorf("promote %s: %w", jobType, err)
			}
			if moved > 0 {
				zap.L().Debug("promoted delayed jobs", zap.String("queue", string(jobType)), zap.Int("count", moved))
			}
		}
		return nil
	})
}

// RequeueStaleJobs periodically returns jobs abandoned by dead workers to
// their ready lists
func (s *Scheduler) RequeueStaleJobs(q *RedisQueue, interval, staleAfter time.Duration, jobTypes ...JobType) error {
	return s.Every(interval, "requeue_stale_jobs", func(ctx context.Context) error {
		for _, jobType := range jobTypes {
			if _, err := q.RequeueStale(ctx, jobType, staleAfter); err != nil {
				return fmt.Errorf("requeue %s: %w", jobType, err)
			}
		}
		return nil
	})
}

// Start starts the scheduler in the background
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels running tasks
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}
