package notification

import (
	"context"
	"time"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/queue"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Dispatcher hands campaign events to out-of-process collaborators.
// Every method is fire-and-forget: failures are logged, never returned.
type Dispatcher interface {
	AdminsReviewRequested(ctx context.Context, campaign *models.Campaign)
	CampaignApproved(ctx context.Context, campaign *models.Campaign)
	CampaignRejected(ctx context.Context, campaign *models.Campaign, reason string)
	CampaignCompleted(ctx context.Context, campaign *models.Campaign)
	DCDAssigned(ctx context.Context, campaign *models.Campaign, dcd *models.User)
	MatchingRequested(ctx context.Context, campaign *models.Campaign)
	ArtifactRequested(ctx context.Context, campaign *models.Campaign)
	VentureShareRequested(ctx context.Context, campaign *models.Campaign, amount decimal.Decimal)
}

// CampaignEventPayload is the body of every campaign notification job
type CampaignEventPayload struct {
	CampaignID uuid.UUID             `json:"campaign_id"`
	ClientID   uuid.UUID             `json:"client_id"`
	DCDID      *uuid.UUID            `json:"dcd_id,omitempty"`
	Status     models.CampaignStatus `json:"status"`
	Reason     string                `json:"reason,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// CampaignJobPayload identifies the campaign an in-process job works on
type CampaignJobPayload struct {
	CampaignID uuid.UUID `json:"campaign_id"`
}

// VentureSharePayload asks the venture share service to allocate the
// completion bonus for a campaign
type VentureSharePayload struct {
	CampaignID uuid.UUID       `json:"campaign_id"`
	DCDID      *uuid.UUID      `json:"dcd_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Budget     decimal.Decimal `json:"budget"`
}

// QueueDispatcher publishes events as jobs on the background queue
type QueueDispatcher struct {
	queue queue.Enqueuer
	now   func() time.Time
}

// NewQueueDispatcher creates a new QueueDispatcher
func NewQueueDispatcher(q queue.Enqueuer) *QueueDispatcher {
	return &QueueDispatcher{queue: q, now: time.Now}
}

func (d *QueueDispatcher) AdminsReviewRequested(ctx context.Context, campaign *models.Campaign) {
	d.publish(ctx, queue.JobTypeNotifyAdminsReview, campaign.ID, d.event(campaign, ""))
}

func (d *QueueDispatcher) CampaignApproved(ctx context.Context, campaign *models.Campaign) {
	d.publish(ctx, queue.JobTypeNotifyCampaignApproved, campaign.ID, d.event(campaign, ""))
}

func (d *QueueDispatcher) CampaignRejected(ctx context.Context, campaign *models.Campaign, reason string) {
	d.publish(ctx, queue.JobTypeNotifyCampaignRejected, campaign.ID, d.event(campaign, reason))
}

func (d *QueueDispatcher) CampaignCompleted(ctx context.Context, campaign *models.Campaign) {
	d.publish(ctx, queue.JobTypeNotifyCampaignComplete, campaign.ID, d.event(campaign, ""))
}

func (d *QueueDispatcher) DCDAssigned(ctx context.Context, campaign *models.Campaign, dcd *models.User) {
	event := d.event(campaign, "")
	id := dcd.ID
	event.DCDID = &id
	d.publish(ctx, queue.JobTypeNotifyDCDAssigned, campaign.ID, event)
}

func (d *QueueDispatcher) MatchingRequested(ctx context.Context, campaign *models.Campaign) {
	d.publish(ctx, queue.JobTypeProcessCampaignMatching, campaign.ID, CampaignJobPayload{CampaignID: campaign.ID})
}

func (d *QueueDispatcher) ArtifactRequested(ctx context.Context, campaign *models.Campaign) {
	d.publish(ctx, queue.JobTypeGenerateCampaignArtifact, campaign.ID, CampaignJobPayload{CampaignID: campaign.ID})
}

func (d *QueueDispatcher) VentureShareRequested(ctx context.Context, campaign *models.Campaign, amount decimal.Decimal) {
	d.publish(ctx, queue.JobTypeAllocateVentureShare, campaign.ID, VentureSharePayload{
		CampaignID: campaign.ID,
		DCDID:      campaign.DCDID,
		Amount:     amount,
		Budget:     campaign.Budget,
	})
}

func (d *QueueDispatcher) event(campaign *models.Campaign, reason string) CampaignEventPayload {
	return CampaignEventPayload{
		CampaignID: campaign.ID,
		ClientID:   campaign.ClientID,
		DCDID:      campaign.DCDID,
		Status:     campaign.Status,
		Reason:     reason,
		OccurredAt: d.now().UTC(),
	}
}

func (d *QueueDispatcher) publish(ctx context.Context, jobType queue.JobType, campaignID uuid.UUID, payload interface{}) {
	jobID, err := d.queue.Enqueue(ctx, jobType, payload)
	if err != nil {
		zap.L().Warn("failed to dispatch campaign event",
			zap.String("type", string(jobType)),
			zap.String("campaign_id", campaignID.String()),
			zap.Error(err),
		)
		return
	}
	zap.L().Debug("dispatched campaign event",
		zap.String("type", string(jobType)),
		zap.String("campaign_id", campaignID.String()),
		zap.String("job_id", jobID),
	)
}
