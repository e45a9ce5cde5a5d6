package queue

import (
	"context"
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	// Jobs consumed in-process
	JobTypeProcessCampaignMatching  JobType = "process_campaign_matching"
	JobTypeGenerateCampaignArtifact JobType = "generate_campaign_artifact"

	// Jobs consumed by the notification and venture share services
	JobTypeNotifyAdminsReview     JobType = "notify_admins_review_requested"
	JobTypeNotifyCampaignApproved JobType = "notify_campaign_approved"
	JobTypeNotifyCampaignRejected JobType = "notify_campaign_rejected"
	JobTypeNotifyCampaignComplete JobType = "notify_campaign_completed"
	JobTypeNotifyDCDAssigned      JobType = "notify_dcd_assigned"
	JobTypeAllocateVentureShare   JobType = "allocate_venture_share"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

const (
	// DefaultRetryCount is the number of attempts a job gets unless overridden
	DefaultRetryCount = 3
	// DefaultTTL is how long job records are kept in Redis
	DefaultTTL = 24 * time.Hour
)

// Job represents a background job
type Job struct {
	ID         string          `json:"id"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	RunAt      time.Time       `json:"run_at"`
	Error      string          `json:"error,omitempty"`
}

// Decode unmarshals the job payload into v
func (j Job) Decode(v interface{}) error {
	return json.Unmarshal(j.Payload, v)
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) error

// Enqueuer accepts jobs for background processing
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType JobType, payload interface{}, opts ...EnqueueOption) (string, error)
}

// Backend is the storage a JobProcessor pulls work from
type Backend interface {
	Dequeue(ctx context.Context, jobType JobType, timeout time.Duration) (*Job, error)
	Complete(ctx context.Context, job *Job) error
	Fail(ctx context.Context, job *Job, jobErr error) error
}
