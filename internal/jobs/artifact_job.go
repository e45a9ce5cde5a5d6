package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/daya/backend/internal/queue"
	"github.com/daya/backend/internal/services/notification"
	"github.com/daya/backend/internal/services/qrcode"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArtifactGenerator produces the QR link for a matched campaign
type ArtifactGenerator interface {
	GenerateArtifact(ctx context.Context, campaignID uuid.UUID) (string, error)
}

// ArtifactJob generates QR links after matching
type ArtifactJob struct {
	generator ArtifactGenerator
}

// NewArtifactJob creates a new artifact job handler
func NewArtifactJob(generator ArtifactGenerator) *ArtifactJob {
	return &ArtifactJob{generator: generator}
}

// Handle processes a generate_campaign_artifact job
func (j *ArtifactJob) Handle(ctx context.Context, job queue.Job) error {
	var payload notification.CampaignJobPayload
	if err := job.Decode(&payload); err != nil {
		zap.L().Error("invalid artifact job payload", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}

	_, err := j.generator.GenerateArtifact(ctx, payload.CampaignID)
	switch {
	case errors.Is(err, qrcode.ErrCampaignNotFound), errors.Is(err, qrcode.ErrNotAssigned):
		zap.L().Warn("skipping qr artifact", zap.String("campaign_id", payload.CampaignID.String()), zap.Error(err))
		return nil
	case err != nil:
		return fmt.Errorf("generate artifact for campaign %s: %w", payload.CampaignID, err)
	}
	return nil
}
