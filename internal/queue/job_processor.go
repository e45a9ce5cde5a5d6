package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobProcessor runs registered handlers against jobs pulled from a Backend
type JobProcessor struct {
	backend        Backend
	handlers       map[JobType]JobHandler
	workerCount    int
	pollTimeout    time.Duration
	wg             sync.WaitGroup
	processingJobs sync.Map
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewJobProcessor creates a new JobProcessor
func NewJobProcessor(backend Backend, workerCount int) *JobProcessor {
	if workerCount < 1 {
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &JobProcessor{
		backend:     backend,
		handlers:    make(map[JobType]JobHandler),
		workerCount: workerCount,
		pollTimeout: time.Second,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// RegisterHandler registers a handler for a job type. Handlers must be
// registered before Start.
func (p *JobProcessor) RegisterHandler(jobType JobType, handler JobHandler) {
	p.handlers[jobType] = handler
}

// JobTypes lists the job types that have a handler
func (p *JobProcessor) JobTypes() []JobType {
	types := make([]JobType, 0, len(p.handlers))
	for jobType := range p.handlers {
		types = append(types, jobType)
	}
	return types
}

// Start starts the job processor
func (p *JobProcessor) Start() {
	zap.L().Info("starting job processor", zap.Int("workers", p.workerCount), zap.Int("queues", len(p.handlers)))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop signals every worker and waits for in-flight jobs to finish
func (p *JobProcessor) Stop() {
	zap.L().Info("stopping job processor")
	p.cancel()
	p.wg.Wait()
	zap.L().Info("job processor stopped")
}

func (p *JobProcessor) worker(id int) {
	defer p.wg.Done()

	queues := p.JobTypes()
	if len(queues) == 0 {
		zap.L().Warn("worker exiting: no queues registered", zap.Int("worker", id))
		return
	}

	for {
		for _, jobType := range queues {
			if p.ctx.Err() != nil {
				return
			}

			job, err := p.backend.Dequeue(p.ctx, jobType, p.pollTimeout)
			if err != nil {
				if p.ctx.Err() != nil {
					return
				}
				zap.L().Error("error getting job from queue",
					zap.Int("worker", id),
					zap.String("queue", string(jobType)),
					zap.Error(err),
				)
				time.Sleep(100 * time.Millisecond)
				continue
			}
			if job == nil {
				continue
			}

			p.processingJobs.Store(job.ID, true)
			if err := p.ProcessJob(p.ctx, job); err != nil {
				zap.L().Warn("job failed",
					zap.Int("worker", id),
					zap.String("job_id", job.ID),
					zap.String("type", string(job.Type)),
					zap.Int("retry_count", job.RetryCount),
					zap.Error(err),
				)
			}
			p.processingJobs.Delete(job.ID)
		}
	}
}

// ProcessJob runs the handler for a single job and records the outcome
func (p *JobProcessor) ProcessJob(ctx context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}

	handler, ok := p.handlers[job.Type]
	if !ok {
		err := fmt.Errorf("no handler registered for job type: %s", job.Type)
		if failErr := p.backend.Fail(ctx, job, err); failErr != nil {
			zap.L().Error("failed to mark job as failed", zap.String("job_id", job.ID), zap.Error(failErr))
		}
		return err
	}

	if err := p.run(ctx, handler, *job); err != nil {
		if failErr := p.backend.Fail(ctx, job, err); failErr != nil {
			zap.L().Error("failed to mark job as failed", zap.String("job_id", job.ID), zap.Error(failErr))
		}
		return fmt.Errorf("job processing failed: %w", err)
	}

	if err := p.backend.Complete(ctx, job); err != nil {
		zap.L().Error("failed to mark job as completed", zap.String("job_id", job.ID), zap.Error(err))
	}
	return nil
}

// run converts a handler panic into an error so the job is retried
func (p *JobProcessor) run(ctx context.Context, handler JobHandler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, job)
}

// IsProcessing checks if a job is currently being processed
func (p *JobProcessor) IsProcessing(jobID string) bool {
	_, ok := p.processingJobs.Load(jobID)
	return ok
}
