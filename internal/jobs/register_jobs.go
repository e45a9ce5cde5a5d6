package jobs

import (
	"context"
	"time"

	"github.com/daya/backend/internal/queue"
)

// RegisterAllJobHandlers registers the in-process job handlers
func RegisterAllJobHandlers(processor *queue.JobProcessor, matchingJob *MatchingJob, artifactJob *ArtifactJob) {
	processor.RegisterHandler(queue.JobTypeProcessCampaignMatching, matchingJob.Handle)
	processor.RegisterHandler(queue.JobTypeGenerateCampaignArtifact, artifactJob.Handle)
}

// ScheduleRecurringJobs schedules the exhaustion sweep, delayed job
// promotion and stale job recovery for the handled queues
func ScheduleRecurringJobs(scheduler *queue.Scheduler, q *queue.RedisQueue, processor *queue.JobProcessor, sweep *ExhaustionSweep, sweepInterval, staleJobTimeout time.Duration) error {
	if err := scheduler.Every(sweepInterval, "exhaustion_sweep", func(ctx context.Context) error {
		_, err := sweep.Run(ctx)
		return err
	}); err != nil {
		return err
	}

	if err := scheduler.PromoteDelayedJobs(q, 15*time.Second, processor.JobTypes()...); err != nil {
		return err
	}
	return scheduler.RequeueStaleJobs(q, time.Minute, staleJobTimeout, processor.JobTypes()...)
}
