package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/services/dedup"
	"github.com/daya/backend/internal/services/lifecycle"
	"github.com/daya/backend/internal/services/notification"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service prices and settles scans
type Service struct {
	db         *gorm.DB
	filter     *dedup.Filter
	accounts   *PlatformAccounts
	dispatcher notification.Dispatcher
	now        func() time.Time
}

// NewService creates a new settlement service
func NewService(db *gorm.DB, filter *dedup.Filter, accounts *PlatformAccounts, dispatcher notification.Dispatcher) *Service {
	if accounts == nil {
		accounts = &PlatformAccounts{}
	}
	return &Service{
		db:         db,
		filter:     filter,
		accounts:   accounts,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ComputePayPerScan prices a scan for the campaign, including the client
// country adjustment
func (s *Service) ComputePayPerScan(ctx context.Context, campaignID uuid.UUID) (decimal.Decimal, error) {
	var campaign models.Campaign
	if err := s.db.WithContext(ctx).Preload("Client").First(&campaign, "id = ?", campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrCampaignNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to load campaign: %w", err)
	}
	return PayPerScan(&campaign, campaign.Client), nil
}

// settleOutcome carries what happened inside the settlement transaction
type settleOutcome struct {
	earning   *models.Earning
	rejection *RejectionError
	completed *models.Campaign
}

// CreditScanReward settles a recorded scan. On success it returns the DCD
// earning. A scan that is deliberately not billed returns a *RejectionError;
// any other error is an internal fault and nothing was written except,
// possibly, the completion of an exhausted campaign.
func (s *Service) CreditScanReward(ctx context.Context, scanID uuid.UUID, override *decimal.Decimal) (*models.Earning, error) {
	var outcome settleOutcome

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		outcome, err = s.settle(ctx, tx, scanID, override)
		return err
	})

	if outcome.completed != nil && err == nil {
		zap.L().Info("campaign auto-completed",
			zap.String("campaign_id", outcome.completed.ID.String()),
			zap.String("scan_id", scanID.String()),
		)
		s.dispatcher.CampaignCompleted(ctx, outcome.completed)
	}

	if err != nil {
		zap.L().Warn("scan settlement failed", zap.String("scan_id", scanID.String()), zap.Error(err))
		return nil, fmt.Errorf("settle scan %s: %w", scanID, err)
	}

	if outcome.rejection != nil {
		zap.L().Info("scan not billed",
			zap.String("scan_id", scanID.String()),
			zap.String("reason", string(outcome.rejection.Reason)),
		)
		return nil, outcome.rejection
	}

	zap.L().Info("scan settled",
		zap.String("scan_id", scanID.String()),
		zap.String("dcd_id", outcome.earning.UserID.String()),
		zap.String("dcd_amount", outcome.earning.Amount.StringFixed(2)),
	)
	return outcome.earning, nil
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, scanID uuid.UUID, override *decimal.Decimal) (settleOutcome, error) {
	var scan models.Scan
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&scan, "id = ?", scanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return settleOutcome{}, ErrScanNotFound
		}
		return settleOutcome{}, fmt.Errorf("failed to load scan: %w", err)
	}

	if scan.IsSettled() {
		return rejected(dedup.ReasonAlreadySettled), nil
	}
	if scan.CampaignID == nil {
		return rejected(ReasonNoCampaign), nil
	}

	// The campaign row lock serialises settlement per campaign so the
	// duplicate checks below see every committed scan
	var campaign models.Campaign
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&campaign, "id = ?", *scan.CampaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return settleOutcome{}, ErrCampaignNotFound
		}
		return settleOutcome{}, fmt.Errorf("failed to load campaign: %w", err)
	}

	decision, err := s.filter.Evaluate(ctx, tx, &scan, &campaign)
	if err != nil {
		return settleOutcome{}, err
	}
	if !decision.Accepted {
		outcome := rejected(decision.Reason)
		if decision.CampaignCompleted {
			outcome.completed = s.markCompleted(&campaign)
		}
		return outcome, nil
	}

	if !isScanEligible(campaign.Status) {
		return rejected(ReasonCampaignNotLive), nil
	}

	pay, err := s.price(tx, &campaign, override)
	if err != nil {
		return settleOutcome{}, err
	}

	// Credit and capacity are re-checked by the update itself so concurrent
	// settlements can never overdraw the campaign
	result := tx.Model(&models.Campaign{}).
		Where("id = ? AND campaign_credit >= ? AND (max_scans = 0 OR total_scans < max_scans)", campaign.ID, pay).
		Updates(map[string]interface{}{
			"campaign_credit": gorm.Expr("campaign_credit - ?", pay),
			"spent_amount":    gorm.Expr("spent_amount + ?", pay),
			"total_scans":     gorm.Expr("total_scans + 1"),
		})
	if result.Error != nil {
		return settleOutcome{}, fmt.Errorf("failed to debit campaign: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		outcome := rejected(ReasonInsufficientCredit)
		completed, err := lifecycle.AutoComplete(tx, campaign.ID, s.now())
		if err != nil {
			return settleOutcome{}, err
		}
		if completed {
			outcome.completed = s.markCompleted(&campaign)
		}
		return outcome, nil
	}

	earning, err := s.writeEarnings(tx, &scan, &campaign, pay)
	if err != nil {
		return settleOutcome{}, err
	}

	stamp := tx.Model(&models.Scan{}).
		Where("id = ? AND earnings IS NULL", scan.ID).
		Update("earnings", pay)
	if stamp.Error != nil {
		return settleOutcome{}, fmt.Errorf("failed to stamp scan earnings: %w", stamp.Error)
	}
	if stamp.RowsAffected == 0 {
		return settleOutcome{}, ErrConcurrentSettled
	}

	outcome := settleOutcome{earning: earning}

	var fresh models.Campaign
	if err := tx.First(&fresh, "id = ?", campaign.ID).Error; err != nil {
		return settleOutcome{}, fmt.Errorf("failed to reload campaign: %w", err)
	}
	if !fresh.CanAcceptScans() {
		completed, err := lifecycle.AutoComplete(tx, fresh.ID, s.now())
		if err != nil {
			return settleOutcome{}, err
		}
		if completed {
			outcome.completed = s.markCompleted(&fresh)
		}
	}

	return outcome, nil
}

func (s *Service) price(tx *gorm.DB, campaign *models.Campaign, override *decimal.Decimal) (decimal.Decimal, error) {
	// Money columns hold cents
	if override != nil {
		pay := override.Round(2)
		if !pay.IsPositive() {
			return decimal.Zero, ErrInvalidPayout
		}
		return pay, nil
	}

	var client *models.User
	var user models.User
	err := tx.First(&user, "id = ?", campaign.ClientID).Error
	switch {
	case err == nil:
		client = &user
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return decimal.Zero, fmt.Errorf("failed to load client: %w", err)
	}

	pay := PayPerScan(campaign, client)
	if !pay.IsPositive() {
		return decimal.Zero, ErrInvalidPayout
	}
	return pay, nil
}

// writeEarnings records the DCD, company and referrer shares and returns
// the DCD earning
func (s *Service) writeEarnings(tx *gorm.DB, scan *models.Scan, campaign *models.Campaign, pay decimal.Decimal) (*models.Earning, error) {
	split := SplitPayout(pay)
	month := s.now().Format(models.MonthLayout)
	scanID := scan.ID
	campaignID := campaign.ID

	newEarning := func(userID uuid.UUID, role models.RecipientRole, amount decimal.Decimal, description string) *models.Earning {
		return &models.Earning{
			UserID:        userID,
			CampaignID:    &campaignID,
			ScanID:        &scanID,
			Type:          models.EarningTypeScan,
			RecipientRole: role,
			Amount:        amount,
			Status:        models.EarningStatusPending,
			Description:   description,
			Month:         month,
		}
	}

	dcdEarning := newEarning(scan.DCDID, models.RecipientDCD, split.DCD,
		fmt.Sprintf("Scan reward for campaign %s", campaign.Name))
	if err := tx.Create(dcdEarning).Error; err != nil {
		return nil, fmt.Errorf("failed to create dcd earning: %w", err)
	}

	if company := s.accounts.Company; company != nil {
		if err := tx.Create(newEarning(company.ID, models.RecipientCompany, split.Company,
			fmt.Sprintf("Company share of scan for campaign %s", campaign.Name))).Error; err != nil {
			return nil, fmt.Errorf("failed to create company earning: %w", err)
		}
	}

	var referral models.Referral
	err := tx.Where("referred_id = ? AND type IN ?", scan.DCDID, models.DCDReferralTypes).
		Order("created_at asc").
		First(&referral).Error
	switch {
	case err == nil:
		if err := tx.Create(newEarning(referral.ReferrerID, models.RecipientReferrer, split.Referrer,
			fmt.Sprintf("Referral commission on scan for campaign %s", campaign.Name))).Error; err != nil {
			return nil, fmt.Errorf("failed to create referrer earning: %w", err)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to look up referrer: %w", err)
	}

	return dcdEarning, nil
}

func (s *Service) markCompleted(campaign *models.Campaign) *models.Campaign {
	now := s.now()
	campaign.Status = models.CampaignStatusCompleted
	campaign.CompletedAt = &now
	return campaign
}

func rejected(reason dedup.Reason) settleOutcome {
	return settleOutcome{rejection: &RejectionError{Reason: reason}}
}

func isScanEligible(status models.CampaignStatus) bool {
	for _, s := range models.ScanEligibleStatuses {
		if s == status {
			return true
		}
	}
	return false
}
