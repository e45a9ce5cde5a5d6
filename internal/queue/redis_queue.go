package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Redis key prefixes
const (
	queuePrefix      = "queue:"
	processingPrefix = "processing:"
	delayedPrefix    = "delayed:"
	failedPrefix     = "failed:"
	jobPrefix        = "jobs:"
)

// ErrJobNotFound is returned when a job record has expired or never existed
var ErrJobNotFound = errors.New("job not found")

// RedisQueue stores jobs in Redis. Ready jobs sit in a list per job type,
// jobs being worked on in a processing list, delayed and retrying jobs in
// a sorted set scored by run time, and the job body in a hash keyed by ID.
// Delivery is at least once: a job whose worker died is put back on the
// ready list by RequeueStale, so handlers must be idempotent.
type RedisQueue struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisQueue creates a new Redis queue
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client: client,
		now:    time.Now,
	}
}

// NewRedisClient parses a redis:// URL and verifies the connection
func NewRedisClient(ctx context.Context, url, password string, db int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DB = db

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Enqueue adds a job to the queue
func (q *RedisQueue) Enqueue(ctx context.Context, jobType JobType, payload interface{}, opts ...EnqueueOption) (string, error) {
	options := buildOptions(opts)

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	now := q.now()
	job := &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    payloadBytes,
		Status:     JobStatusPending,
		MaxRetries: options.maxRetry,
		CreatedAt:  now,
		UpdatedAt:  now,
		RunAt:      now.Add(options.delay),
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobPrefix+job.ID, "data", jobBytes)
		pipe.Expire(ctx, jobPrefix+job.ID, DefaultTTL)
		if options.delay > 0 {
			pipe.ZAdd(ctx, delayedPrefix+string(jobType), &redis.Z{
				Score:  float64(job.RunAt.Unix()),
				Member: job.ID,
			})
		} else {
			pipe.LPush(ctx, queuePrefix+string(jobType), job.ID)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to add job to queue: %w", err)
	}

	return job.ID, nil
}

// Dequeue atomically moves the next ready job of the given type onto its
// processing list, waiting up to timeout. It returns nil when no job
// arrived in time.
func (q *RedisQueue) Dequeue(ctx context.Context, jobType JobType, timeout time.Duration) (*Job, error) {
	processingKey := processingPrefix + string(jobType)

	id, err := q.client.BRPopLPush(ctx, queuePrefix+string(jobType), processingKey, timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("error popping job from queue %s: %w", jobType, err)
	}

	job, err := q.load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			q.client.LRem(ctx, processingKey, 1, id)
		}
		return nil, err
	}

	job.Status = JobStatusProcessing
	job.UpdatedAt = q.now()
	if err := q.save(ctx, job); err != nil {
		return nil, err
	}

	return job, nil
}

// Complete marks a job as completed
func (q *RedisQueue) Complete(ctx context.Context, job *Job) error {
	job.Status = JobStatusCompleted
	job.Error = ""
	job.UpdatedAt = q.now()

	if err := q.save(ctx, job); err != nil {
		return err
	}
	return q.release(ctx, job)
}

// Fail records a failed attempt. The job is rescheduled with exponential
// backoff until it runs out of retries, then moved to the failed set.
func (q *RedisQueue) Fail(ctx context.Context, job *Job, jobErr error) error {
	job.RetryCount++
	job.UpdatedAt = q.now()
	if jobErr != nil {
		job.Error = jobErr.Error()
	}

	if job.RetryCount < job.MaxRetries {
		job.Status = JobStatusPending
		job.RunAt = job.UpdatedAt.Add(calculateBackoff(job.RetryCount))

		if err := q.save(ctx, job); err != nil {
			return err
		}
		if err := q.client.ZAdd(ctx, delayedPrefix+string(job.Type), &redis.Z{
			Score:  float64(job.RunAt.Unix()),
			Member: job.ID,
		}).Err(); err != nil {
			return fmt.Errorf("failed to add job to delayed queue for retry: %w", err)
		}
		return q.release(ctx, job)
	}

	job.Status = JobStatusFailed
	if err := q.save(ctx, job); err != nil {
		return err
	}
	if err := q.client.HSet(ctx, failedPrefix+string(job.Type), job.ID, job.UpdatedAt.Format(time.RFC3339)).Err(); err != nil {
		return fmt.Errorf("failed to add job to failed set: %w", err)
	}
	return q.release(ctx, job)
}

// RequeueStale puts jobs that have sat on the processing list longer than
// staleAfter back on the ready list and reports how many were moved
func (q *RedisQueue) RequeueStale(ctx context.Context, jobType JobType, staleAfter time.Duration) (int, error) {
	processingKey := processingPrefix + string(jobType)

	ids, err := q.client.LRange(ctx, processingKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list processing jobs: %w", err)
	}

	moved := 0
	for _, id := range ids {
		job, err := q.load(ctx, id)
		if errors.Is(err, ErrJobNotFound) {
			q.client.LRem(ctx, processingKey, 1, id)
			continue
		}
		if err != nil {
			return moved, err
		}
		if q.now().Sub(job.UpdatedAt) < staleAfter {
			continue
		}

		// LRem wins the race against a worker finishing the job
		removed, err := q.client.LRem(ctx, processingKey, 1, id).Result()
		if err != nil {
			return moved, fmt.Errorf("failed to remove stale job: %w", err)
		}
		if removed == 0 {
			continue
		}

		job.Status = JobStatusPending
		job.UpdatedAt = q.now()
		if err := q.save(ctx, job); err != nil {
			return moved, err
		}
		if err := q.client.LPush(ctx, queuePrefix+string(jobType), id).Err(); err != nil {
			return moved, fmt.Errorf("failed to requeue stale job: %w", err)
		}
		zap.L().Warn("requeued stale job", zap.String("job_id", id), zap.String("queue", string(jobType)))
		moved++
	}

	return moved, nil
}

func (q *RedisQueue) release(ctx context.Context, job *Job) error {
	if err := q.client.LRem(ctx, processingPrefix+string(job.Type), 1, job.ID).Err(); err != nil {
		return fmt.Errorf("failed to remove job from processing list: %w", err)
	}
	return nil
}

// PromoteDelayed moves delayed jobs whose run time has passed onto the
// ready list and reports how many were moved
func (q *RedisQueue) PromoteDelayed(ctx context.Context, jobType JobType) (int, error) {
	delayedKey := delayedPrefix + string(jobType)

	ids, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(q.now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("error getting delayed jobs: %w", err)
	}

	moved := 0
	for _, id := range ids {
		// ZRem wins the race when several instances promote at once
		removed, err := q.client.ZRem(ctx, delayedKey, id).Result()
		if err != nil {
			return moved, fmt.Errorf("failed to remove job from delayed queue: %w", err)
		}
		if removed == 0 {
			continue
		}

		if err := q.client.LPush(ctx, queuePrefix+string(jobType), id).Err(); err != nil {
			return moved, fmt.Errorf("failed to add job to queue: %w", err)
		}
		moved++
	}

	return moved, nil
}

// GetQueueStats gets statistics for a queue
func (q *RedisQueue) GetQueueStats(ctx context.Context, jobType JobType) (*QueueStats, error) {
	name := string(jobType)
	pipe := q.client.Pipeline()
	waiting := pipe.LLen(ctx, queuePrefix+name)
	delayed := pipe.ZCard(ctx, delayedPrefix+name)
	processing := pipe.LLen(ctx, processingPrefix+name)
	failed := pipe.HLen(ctx, failedPrefix+name)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	return &QueueStats{
		Queue:      name,
		Waiting:    int(waiting.Val()),
		Delayed:    int(delayed.Val()),
		Processing: int(processing.Val()),
		Failed:     int(failed.Val()),
	}, nil
}

// Ping checks the Redis connection
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) load(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.HGet(ctx, jobPrefix+id, "data").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job details: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) save(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobPrefix+job.ID, "data", data)
		pipe.Expire(ctx, jobPrefix+job.ID, DefaultTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}
