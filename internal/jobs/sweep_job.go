package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/services/lifecycle"
	"github.com/daya/backend/internal/services/notification"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExhaustionSweep completes campaigns that ran out of credit or scans
// without a scan arriving to notice
type ExhaustionSweep struct {
	db         *gorm.DB
	dispatcher notification.Dispatcher
	now        func() time.Time
}

// NewExhaustionSweep creates a new ExhaustionSweep
func NewExhaustionSweep(db *gorm.DB, dispatcher notification.Dispatcher) *ExhaustionSweep {
	return &ExhaustionSweep{
		db:         db,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run completes every exhausted campaign and returns how many it completed
func (s *ExhaustionSweep) Run(ctx context.Context) (int, error) {
	var exhausted []models.Campaign
	err := s.db.WithContext(ctx).
		Where("dcd_id IS NOT NULL AND status NOT IN ?",
			[]models.CampaignStatus{models.CampaignStatusCompleted, models.CampaignStatusRejected}).
		Where("campaign_credit <= 0 OR (max_scans > 0 AND total_scans >= max_scans)").
		Find(&exhausted).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find exhausted campaigns: %w", err)
	}

	completed := 0
	for i := range exhausted {
		campaign := &exhausted[i]
		at := s.now()

		done, err := lifecycle.AutoComplete(s.db.WithContext(ctx), campaign.ID, at)
		if err != nil {
			return completed, err
		}
		if !done {
			continue
		}

		completed++
		campaign.Status = models.CampaignStatusCompleted
		campaign.CompletedAt = &at
		s.dispatcher.CampaignCompleted(ctx, campaign)
	}

	if completed > 0 {
		zap.L().Info("exhaustion sweep completed campaigns", zap.Int("count", completed))
	}
	return completed, nil
}
