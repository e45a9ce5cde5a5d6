package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/daya/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Selector picks the campaign a DCD's scans are attributed to
type Selector struct {
	db       *gorm.DB
	location *time.Location
	now      func() time.Time
}

// NewSelector creates a new Selector. Campaign windows are evaluated on
// the calendar day in loc.
func NewSelector(db *gorm.DB, loc *time.Location) *Selector {
	if loc == nil {
		loc = time.UTC
	}
	return &Selector{
		db:       db,
		location: loc,
		now:      time.Now,
	}
}

// GetActiveCampaignForDCD returns the oldest approved or live campaign
// assigned to dcd whose window contains today and that can still accept
// scans. It returns nil without error when dcd is not a DCD or nothing
// qualifies.
func (s *Selector) GetActiveCampaignForDCD(ctx context.Context, dcd *models.User) (*models.Campaign, error) {
	if !dcd.IsDCD() {
		return nil, nil
	}

	var candidates []models.Campaign
	err := s.db.WithContext(ctx).
		Where("dcd_id = ? AND status IN ?", dcd.ID, models.ScanEligibleStatuses).
		Order("created_at asc").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns for dcd: %w", err)
	}

	today := s.now().In(s.location)
	for i := range candidates {
		campaign := &candidates[i]

		active, err := campaign.ActiveOn(today)
		if err != nil {
			zap.L().Warn("skipping campaign with invalid dates",
				zap.String("campaign_id", campaign.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if active && campaign.CanAcceptScans() {
			return campaign, nil
		}
	}

	zap.L().Debug("no active campaign for dcd", zap.String("dcd_id", dcd.ID.String()))
	return nil, nil
}
