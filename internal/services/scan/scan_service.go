package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daya/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput     = errors.New("invalid scan input")
	ErrMissingSignal    = errors.New("device fingerprint or ip address is required")
	ErrDCDNotFound      = errors.New("dcd not found")
	ErrNotDCD           = errors.New("user must be a DCD")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrCampaignMismatch = errors.New("campaign is not assigned to this dcd")
)

// CampaignSelector finds the campaign a DCD is currently running
type CampaignSelector interface {
	GetActiveCampaignForDCD(ctx context.Context, dcd *models.User) (*models.Campaign, error)
}

// Settler pays out a recorded scan
type Settler interface {
	CreditScanReward(ctx context.Context, scanID uuid.UUID, override *decimal.Decimal) (*models.Earning, error)
}

// LinkVerifier checks the signature carried by a scanned QR link
type LinkVerifier interface {
	Verify(campaignID, dcdID uuid.UUID, sig string) error
}

// RecordScanInput is the payload sent when a QR code is scanned.
// IPAddress is the address the server observed and is the one dedup keys
// on; ReportedIP is whatever the client claims and is kept in the geo bag.
type RecordScanInput struct {
	DCDID             string   `json:"dcd_id" validate:"required,uuid"`
	CampaignID        string   `json:"campaign_id,omitempty" validate:"omitempty,uuid"`
	Signature         string   `json:"sig,omitempty" validate:"max=128"`
	DeviceFingerprint string   `json:"device_fingerprint,omitempty" validate:"max=255"`
	IPAddress         string   `json:"-" validate:"omitempty,ip"`
	ReportedIP        string   `json:"ip_address,omitempty" validate:"omitempty,ip"`
	UserAgent         string   `json:"user_agent,omitempty" validate:"max=512"`
	Country           string   `json:"country,omitempty" validate:"max=100"`
	City              string   `json:"city,omitempty" validate:"max=100"`
	Latitude          *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude         *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// ScanResult reports what happened to a recorded scan. Rejection reasons
// are deliberately not exposed.
type ScanResult struct {
	Scan             *models.Scan
	Campaign         *models.Campaign
	Earning          *models.Earning
	Earned           bool
	NoActiveCampaign bool
}

// Service records scans and hands them to settlement
type Service struct {
	db       *gorm.DB
	selector CampaignSelector
	settler  Settler
	verifier LinkVerifier
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a new scan service
func NewService(db *gorm.DB, selector CampaignSelector, settler Settler, verifier LinkVerifier) *Service {
	return &Service{
		db:       db,
		selector: selector,
		settler:  settler,
		verifier: verifier,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RecordScan stores a scan against the DCD's campaign and settles it. The
// settlement outcome never fails the call.
func (s *Service) RecordScan(ctx context.Context, input RecordScanInput) (*ScanResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	input.DeviceFingerprint = strings.TrimSpace(input.DeviceFingerprint)
	input.IPAddress = strings.TrimSpace(input.IPAddress)
	if input.DeviceFingerprint == "" && input.IPAddress == "" {
		return nil, ErrMissingSignal
	}

	dcd, err := s.loadDCD(ctx, uuid.MustParse(input.DCDID))
	if err != nil {
		return nil, err
	}

	campaign, err := s.resolveCampaign(ctx, dcd, input)
	if err != nil {
		return nil, err
	}

	scan := &models.Scan{
		DCDID:             dcd.ID,
		ScannedAt:         s.now(),
		DeviceFingerprint: input.DeviceFingerprint,
		IPAddress:         input.IPAddress,
		Geo: datatypes.NewJSONType(models.ScanGeo{
			IPAddress: strings.TrimSpace(input.ReportedIP),
			UserAgent: input.UserAgent,
			Country:   input.Country,
			City:      input.City,
			Latitude:  input.Latitude,
			Longitude: input.Longitude,
		}),
	}
	if campaign != nil {
		scan.CampaignID = &campaign.ID
	}

	if err := s.db.WithContext(ctx).Create(scan).Error; err != nil {
		return nil, fmt.Errorf("failed to record scan: %w", err)
	}

	result := &ScanResult{Scan: scan, Campaign: campaign}
	if campaign == nil {
		result.NoActiveCampaign = true
		zap.L().Info("scan recorded without active campaign",
			zap.String("scan_id", scan.ID.String()),
			zap.String("dcd_id", dcd.ID.String()),
		)
		return result, nil
	}

	earning, err := s.settler.CreditScanReward(ctx, scan.ID, nil)
	if err != nil {
		// Settlement logs its own rejections and faults
		return result, nil
	}
	result.Earning = earning
	result.Earned = true
	return result, nil
}

func (s *Service) loadDCD(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDCDNotFound
		}
		return nil, fmt.Errorf("failed to load dcd: %w", err)
	}
	if !user.IsDCD() {
		return nil, ErrNotDCD
	}
	return &user, nil
}

// resolveCampaign uses the campaign named by a signed link when present,
// otherwise asks the selector. A nil campaign means none is running.
func (s *Service) resolveCampaign(ctx context.Context, dcd *models.User, input RecordScanInput) (*models.Campaign, error) {
	if input.CampaignID == "" {
		return s.selector.GetActiveCampaignForDCD(ctx, dcd)
	}

	campaignID := uuid.MustParse(input.CampaignID)
	if input.Signature != "" && s.verifier != nil {
		if err := s.verifier.Verify(campaignID, dcd.ID, input.Signature); err != nil {
			return nil, err
		}
	}

	var campaign models.Campaign
	if err := s.db.WithContext(ctx).First(&campaign, "id = ?", campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign.DCDID == nil || *campaign.DCDID != dcd.ID {
		return nil, ErrCampaignMismatch
	}
	return &campaign, nil
}
