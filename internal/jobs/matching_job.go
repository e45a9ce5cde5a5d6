package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/queue"
	"github.com/daya/backend/internal/services/matching"
	"github.com/daya/backend/internal/services/notification"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Matcher assigns a DCD to a campaign
type Matcher interface {
	AssignDCD(ctx context.Context, campaignID uuid.UUID) (*models.User, error)
}

// MatchingJob runs DCD matching for an approved campaign
type MatchingJob struct {
	matcher Matcher
	locker  Locker
}

// NewMatchingJob creates a new matching job handler
func NewMatchingJob(matcher Matcher, locker Locker) *MatchingJob {
	return &MatchingJob{
		matcher: matcher,
		locker:  locker,
	}
}

// Handle processes a process_campaign_matching job. Only one worker
// matches a given campaign at a time; a busy lock fails the job so it is
// retried later.
func (j *MatchingJob) Handle(ctx context.Context, job queue.Job) error {
	var payload notification.CampaignJobPayload
	if err := job.Decode(&payload); err != nil {
		zap.L().Error("invalid matching job payload", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}

	unlock, err := j.locker.Lock(ctx, "campaign-matching:"+payload.CampaignID.String())
	if err != nil {
		return err
	}
	defer unlock()

	dcd, err := j.matcher.AssignDCD(ctx, payload.CampaignID)
	switch {
	case errors.Is(err, matching.ErrCampaignNotFound),
		errors.Is(err, matching.ErrCampaignClosed),
		errors.Is(err, matching.ErrInvalidWindow):
		zap.L().Warn("campaign cannot be matched",
			zap.String("campaign_id", payload.CampaignID.String()),
			zap.Error(err),
		)
		return nil
	case err != nil:
		return fmt.Errorf("match campaign %s: %w", payload.CampaignID, err)
	}

	if dcd == nil {
		zap.L().Info("campaign left unassigned", zap.String("campaign_id", payload.CampaignID.String()))
	}
	return nil
}
