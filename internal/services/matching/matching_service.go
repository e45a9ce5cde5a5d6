package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/services/lifecycle"
	"github.com/daya/backend/internal/services/notification"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrCampaignClosed   = errors.New("campaign is closed for matching")
	ErrInvalidWindow    = errors.New("campaign has no valid date window")
)

// tier is one level of the matching precedence
type tier struct {
	name  string
	match func(campaign *models.Campaign, targeting models.CampaignTargeting, dcd *models.User) bool
}

var tiers = []tier{
	{name: "business_name", match: matchBusinessName},
	{name: "business_type", match: matchBusinessType},
	{name: "music_genre", match: matchMusicGenre},
}

// Service assigns DCDs to campaigns
type Service struct {
	db         *gorm.DB
	dispatcher notification.Dispatcher
}

// NewService creates a new matching service
func NewService(db *gorm.DB, dispatcher notification.Dispatcher) *Service {
	return &Service{
		db:         db,
		dispatcher: dispatcher,
	}
}

// AssignDCD picks the best available DCD for the campaign and makes the
// campaign live. A campaign that already has a DCD returns it unchanged.
// It returns nil without error when no DCD qualifies.
func (s *Service) AssignDCD(ctx context.Context, campaignID uuid.UUID) (*models.User, error) {
	var (
		campaign models.Campaign
		assigned *models.User
		fresh    bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&campaign, "id = ?", campaignID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCampaignNotFound
			}
			return fmt.Errorf("failed to load campaign: %w", err)
		}

		if campaign.DCDID != nil {
			var existing models.User
			if err := tx.First(&existing, "id = ?", *campaign.DCDID).Error; err != nil {
				return fmt.Errorf("failed to load assigned dcd: %w", err)
			}
			assigned = &existing
			return nil
		}

		if campaign.IsTerminal() {
			return ErrCampaignClosed
		}
		if _, _, err := campaign.Window(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidWindow, err)
		}

		dcd, err := s.pick(tx, &campaign)
		if err != nil || dcd == nil {
			return err
		}

		if err := tx.Model(&models.Campaign{}).Where("id = ?", campaign.ID).Update("dcd_id", dcd.ID).Error; err != nil {
			return fmt.Errorf("failed to assign dcd: %w", err)
		}
		activated, err := lifecycle.Activate(tx, campaign.ID)
		if err != nil {
			return err
		}

		campaign.DCDID = &dcd.ID
		if activated {
			campaign.Status = models.CampaignStatusLive
		}
		assigned = dcd
		fresh = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if assigned == nil {
		zap.L().Info("no dcd available for campaign", zap.String("campaign_id", campaignID.String()))
		return nil, nil
	}

	if fresh {
		zap.L().Info("dcd assigned to campaign",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("dcd_id", assigned.ID.String()),
			zap.String("status", string(campaign.Status)),
		)
		s.dispatcher.DCDAssigned(ctx, &campaign, assigned)
		s.dispatcher.ArtifactRequested(ctx, &campaign)
	}
	return assigned, nil
}

// pick walks the tiers in order and claims the first candidate that is
// still free once its row is locked
func (s *Service) pick(tx *gorm.DB, campaign *models.Campaign) (*models.User, error) {
	var dcds []models.User
	if err := tx.Where("role = ?", models.RoleDCD).Order("created_at asc").Find(&dcds).Error; err != nil {
		return nil, fmt.Errorf("failed to load dcds: %w", err)
	}

	busy, err := bookedDCDs(tx, campaign, nil)
	if err != nil {
		return nil, err
	}

	targeting := campaign.Targeting()
	for _, t := range tiers {
		for i := range dcds {
			dcd := &dcds[i]
			if _, taken := busy[dcd.ID]; taken || !t.match(campaign, targeting, dcd) {
				continue
			}

			claimed, err := claim(tx, campaign, dcd.ID)
			if err != nil {
				return nil, err
			}
			if !claimed {
				busy[dcd.ID] = struct{}{}
				continue
			}

			zap.L().Debug("dcd matched",
				zap.String("campaign_id", campaign.ID.String()),
				zap.String("dcd_id", dcd.ID.String()),
				zap.String("tier", t.name),
			)
			return dcd, nil
		}
	}
	return nil, nil
}

// claim locks the DCD row and re-checks its bookings against committed
// data. A concurrent assignment that got there first makes it fail.
func claim(tx *gorm.DB, campaign *models.Campaign, dcdID uuid.UUID) (bool, error) {
	var locked models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, "id = ?", dcdID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock dcd: %w", err)
	}

	busy, err := bookedDCDs(tx, campaign, &dcdID)
	if err != nil {
		return false, err
	}
	_, taken := busy[dcdID]
	return !taken, nil
}

// bookedDCDs returns the DCDs holding another booking campaign whose window
// overlaps campaign's. Campaigns with unparseable dates block nobody.
func bookedDCDs(tx *gorm.DB, campaign *models.Campaign, only *uuid.UUID) (map[uuid.UUID]struct{}, error) {
	query := tx.Where("dcd_id IS NOT NULL AND id <> ? AND status IN ?", campaign.ID, models.BookingStatuses)
	if only != nil {
		query = query.Where("dcd_id = ?", *only)
	}

	var bookings []models.Campaign
	if err := query.Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to load dcd bookings: %w", err)
	}

	busy := make(map[uuid.UUID]struct{})
	for i := range bookings {
		booking := &bookings[i]
		overlaps, err := booking.Overlaps(campaign)
		if err != nil {
			zap.L().Debug("ignoring booking with invalid dates",
				zap.String("campaign_id", booking.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if overlaps {
			busy[*booking.DCDID] = struct{}{}
		}
	}
	return busy, nil
}

func matchBusinessName(_ *models.Campaign, targeting models.CampaignTargeting, dcd *models.User) bool {
	name := strings.TrimSpace(targeting.BusinessName)
	return name != "" && strings.EqualFold(name, strings.TrimSpace(dcd.BusinessName))
}

func matchBusinessType(_ *models.Campaign, targeting models.CampaignTargeting, dcd *models.User) bool {
	profile := dcd.Profile.Data()
	offered := make([]string, 0, 1+len(profile.BusinessTypes)+len(profile.CampaignTypes))
	if dcd.AccountType != "" {
		offered = append(offered, dcd.AccountType)
	}
	offered = append(offered, profile.BusinessTypes...)
	offered = append(offered, profile.CampaignTypes...)
	return models.IntersectsFold(targeting.BusinessTypes, offered)
}

func matchMusicGenre(campaign *models.Campaign, targeting models.CampaignTargeting, dcd *models.User) bool {
	if campaign.Objective != models.ObjectiveMusicPromotion {
		return false
	}
	if !models.IntersectsFold(targeting.MusicGenres, dcd.Profile.Data().MusicGenres) {
		return false
	}
	if country := strings.TrimSpace(targeting.TargetCountry); country != "" {
		return dcd.InCountry(country)
	}
	return true
}
