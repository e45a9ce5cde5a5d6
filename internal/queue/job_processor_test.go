package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBackend is a mock implementation of Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Dequeue(ctx context.Context, jobType JobType, timeout time.Duration) (*Job, error) {
	args := m.Called(ctx, jobType, timeout)
	job, _ := args.Get(0).(*Job)
	return job, args.Error(1)
}

func (m *MockBackend) Complete(ctx context.Context, job *Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockBackend) Fail(ctx context.Context, job *Job, jobErr error) error {
	return m.Called(ctx, job, jobErr).Error(0)
}

func newTestJob(jobType JobType) *Job {
	return &Job{
		ID:         "job-1",
		Type:       jobType,
		Payload:    []byte(`{"campaign_id":"c-1"}`),
		Status:     JobStatusProcessing,
		MaxRetries: DefaultRetryCount,
	}
}

func TestProcessJobCompletesOnSuccess(t *testing.T) {
	backend := new(MockBackend)
	job := newTestJob(JobTypeProcessCampaignMatching)
	backend.On("Complete", mock.Anything, job).Return(nil).Once()

	processor := NewJobProcessor(backend, 1)
	var seen map[string]string
	processor.RegisterHandler(JobTypeProcessCampaignMatching, func(ctx context.Context, job Job) error {
		return job.Decode(&seen)
	})

	err := processor.ProcessJob(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, "c-1", seen["campaign_id"])
	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessJobFailsOnHandlerError(t *testing.T) {
	backend := new(MockBackend)
	job := newTestJob(JobTypeGenerateCampaignArtifact)
	handlerErr := errors.New("campaign has no DCD")
	backend.On("Fail", mock.Anything, job, handlerErr).Return(nil).Once()

	processor := NewJobProcessor(backend, 1)
	processor.RegisterHandler(JobTypeGenerateCampaignArtifact, func(ctx context.Context, job Job) error {
		return handlerErr
	})

	err := processor.ProcessJob(context.Background(), job)

	require.Error(t, err)
	assert.ErrorIs(t, err, handlerErr)
	backend.AssertExpectations(t)
}

func TestProcessJobRecoversFromPanic(t *testing.T) {
	backend := new(MockBackend)
	job := newTestJob(JobTypeProcessCampaignMatching)
	backend.On("Fail", mock.Anything, job, mock.MatchedBy(func(err error) bool {
		return err != nil && err.Error() == "handler panicked: boom"
	})).Return(nil).Once()

	processor := NewJobProcessor(backend, 1)
	processor.RegisterHandler(JobTypeProcessCampaignMatching, func(ctx context.Context, job Job) error {
		panic("boom")
	})

	err := processor.ProcessJob(context.Background(), job)

	require.Error(t, err)
	backend.AssertExpectations(t)
}

func TestProcessJobWithoutHandler(t *testing.T) {
	backend := new(MockBackend)
	job := newTestJob(JobTypeNotifyDCDAssigned)
	backend.On("Fail", mock.Anything, job, mock.Anything).Return(nil).Once()

	processor := NewJobProcessor(backend, 1)

	err := processor.ProcessJob(context.Background(), job)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
	backend.AssertExpectations(t)
}

func TestProcessJobNil(t *testing.T) {
	processor := NewJobProcessor(new(MockBackend), 1)
	assert.Error(t, processor.ProcessJob(context.Background(), nil))
}

// channelBackend hands out jobs from a channel and blocks until the
// context is cancelled when none are pending
type channelBackend struct {
	jobs chan *Job

	mu        sync.Mutex
	completed []string
}

func (b *channelBackend) Dequeue(ctx context.Context, jobType JobType, timeout time.Duration) (*Job, error) {
	select {
	case job := <-b.jobs:
		return job, nil
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *channelBackend) Complete(ctx context.Context, job *Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed = append(b.completed, job.ID)
	return nil
}

func (b *channelBackend) Fail(ctx context.Context, job *Job, jobErr error) error {
	return nil
}

func (b *channelBackend) completedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.completed)
}

func TestJobProcessorStartStop(t *testing.T) {
	backend := &channelBackend{jobs: make(chan *Job, 3)}
	for _, id := range []string{"a", "b", "c"} {
		backend.jobs <- &Job{ID: id, Type: JobTypeProcessCampaignMatching}
	}

	processor := NewJobProcessor(backend, 2)
	processor.RegisterHandler(JobTypeProcessCampaignMatching, func(ctx context.Context, job Job) error {
		return nil
	})

	processor.Start()
	assert.Eventually(t, func() bool { return backend.completedCount() == 3 }, time.Second, 10*time.Millisecond)
	processor.Stop()

	assert.False(t, processor.IsProcessing("a"))
}

func TestCalculateBackoff(t *testing.T) {
	first := calculateBackoff(1)
	assert.GreaterOrEqual(t, first, 8*time.Second)
	assert.LessOrEqual(t, first, 12*time.Second)

	capped := calculateBackoff(20)
	assert.LessOrEqual(t, capped, 72*time.Minute)
	assert.GreaterOrEqual(t, capped, 48*time.Minute)
}

func TestEnqueueOptions(t *testing.T) {
	defaults := buildOptions(nil)
	assert.Equal(t, DefaultRetryCount, defaults.maxRetry)
	assert.Zero(t, defaults.delay)

	custom := buildOptions([]EnqueueOption{WithDelay(time.Minute), WithMaxRetry(5)})
	assert.Equal(t, time.Minute, custom.delay)
	assert.Equal(t, 5, custom.maxRetry)
}
