package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/services/notification"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrNotSubmitted     = errors.New("campaign is not submitted")
	ErrNotUnderReview   = errors.New("campaign is not under review")
	ErrNotApproved      = errors.New("campaign is not approved")
)

// activatableStatuses may move to live once a DCD is assigned
var activatableStatuses = []models.CampaignStatus{
	models.CampaignStatusSubmitted,
	models.CampaignStatusApproved,
	models.CampaignStatusActive,
}

// Service drives campaign status transitions
type Service struct {
	db               *gorm.DB
	dispatcher       notification.Dispatcher
	ventureShareRate decimal.Decimal
	now              func() time.Time
}

// NewService creates a new lifecycle service. ventureShareRate is the
// fraction of the budget allocated to the DCD on explicit completion.
func NewService(db *gorm.DB, dispatcher notification.Dispatcher, ventureShareRate decimal.Decimal) *Service {
	return &Service{
		db:               db,
		dispatcher:       dispatcher,
		ventureShareRate: ventureShareRate,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// MarkUnderReview notifies admins about a submitted campaign and moves it
// to under_review
func (s *Service) MarkUnderReview(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error) {
	campaign, err := s.find(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != models.CampaignStatusSubmitted {
		return nil, ErrNotSubmitted
	}

	if err := s.transition(ctx, campaign, models.CampaignStatusUnderReview, ErrNotSubmitted, models.CampaignStatusSubmitted); err != nil {
		return nil, err
	}

	s.dispatcher.AdminsReviewRequested(ctx, campaign)
	return campaign, nil
}

// Approve accepts a campaign under review and queues DCD matching
func (s *Service) Approve(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error) {
	campaign, err := s.find(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, campaign, models.CampaignStatusApproved, ErrNotUnderReview, models.CampaignStatusUnderReview); err != nil {
		return nil, err
	}

	zap.L().Info("campaign approved", zap.String("campaign_id", campaign.ID.String()))
	s.dispatcher.CampaignApproved(ctx, campaign)
	s.dispatcher.MatchingRequested(ctx, campaign)
	return campaign, nil
}

// Reject declines a campaign under review
func (s *Service) Reject(ctx context.Context, campaignID uuid.UUID, reason string) (*models.Campaign, error) {
	campaign, err := s.find(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, campaign, models.CampaignStatusRejected, ErrNotUnderReview, models.CampaignStatusUnderReview); err != nil {
		return nil, err
	}

	zap.L().Info("campaign rejected", zap.String("campaign_id", campaign.ID.String()), zap.String("reason", reason))
	s.dispatcher.CampaignRejected(ctx, campaign, reason)
	return campaign, nil
}

// Complete is the explicit admin completion of an approved campaign. It
// requests the venture share allocation and the completion recap.
func (s *Service) Complete(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error) {
	campaign, err := s.find(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaign.ID, models.CampaignStatusApproved).
		Updates(map[string]interface{}{
			"status":       models.CampaignStatusCompleted,
			"completed_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to complete campaign: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotApproved
	}

	campaign.Status = models.CampaignStatusCompleted
	campaign.CompletedAt = &now

	share := campaign.Budget.Mul(s.ventureShareRate).Round(2)
	zap.L().Info("campaign completed",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("venture_share", share.StringFixed(2)),
	)
	s.dispatcher.VentureShareRequested(ctx, campaign, share)
	s.dispatcher.CampaignCompleted(ctx, campaign)
	return campaign, nil
}

func (s *Service) find(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.db.WithContext(ctx).First(&campaign, "id = ?", campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	return &campaign, nil
}

// transition moves the campaign to target only if its stored status is
// still from. The guard makes concurrent admin actions fail cleanly.
func (s *Service) transition(ctx context.Context, campaign *models.Campaign, target models.CampaignStatus, precondition error, from models.CampaignStatus) error {
	result := s.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaign.ID, from).
		Update("status", target)
	if result.Error != nil {
		return fmt.Errorf("failed to update campaign status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return precondition
	}

	campaign.Status = target
	return nil
}

// AutoComplete marks a campaign completed once it can no longer accept
// scans. It applies to any status except completed and rejected, needs an
// assigned DCD, and reports whether this call performed the transition.
func AutoComplete(tx *gorm.DB, campaignID uuid.UUID, at time.Time) (bool, error) {
	result := tx.Model(&models.Campaign{}).
		Where("id = ? AND dcd_id IS NOT NULL AND status NOT IN ?", campaignID,
			[]models.CampaignStatus{models.CampaignStatusCompleted, models.CampaignStatusRejected}).
		Updates(map[string]interface{}{
			"status":       models.CampaignStatusCompleted,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to auto-complete campaign: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Activate moves a campaign with a freshly assigned DCD to live
func Activate(tx *gorm.DB, campaignID uuid.UUID) (bool, error) {
	result := tx.Model(&models.Campaign{}).
		Where("id = ? AND status IN ?", campaignID, activatableStatuses).
		Update("status", models.CampaignStatusLive)
	if result.Error != nil {
		return false, fmt.Errorf("failed to activate campaign: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
