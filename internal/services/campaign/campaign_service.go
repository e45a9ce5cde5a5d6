package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/services/settlement"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput     = errors.New("invalid campaign input")
	ErrInvalidBudget    = errors.New("budget must be positive")
	ErrUnknownObjective = errors.New("unknown campaign objective")
	ErrEndBeforeStart   = errors.New("end date is before start date")
	ErrClientNotFound   = errors.New("client not found")
	ErrNotClient        = errors.New("user must be a client")
	ErrCampaignNotFound = errors.New("campaign not found")
)

// SubmitCampaignInput is a client's campaign request
type SubmitCampaignInput struct {
	ClientID          string           `json:"client_id" validate:"required,uuid"`
	Name              string           `json:"name" validate:"required,max=255"`
	Budget            decimal.Decimal  `json:"budget"`
	CostPerClick      *decimal.Decimal `json:"cost_per_click,omitempty"`
	Objective         string           `json:"campaign_objective" validate:"required"`
	ExplainerVideoURL string           `json:"explainer_video_url,omitempty" validate:"omitempty,url"`
	StartDate         string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	BusinessName      string           `json:"business_name,omitempty" validate:"max=255"`
	BusinessTypes     []string         `json:"business_types,omitempty" validate:"dive,max=100"`
	MusicGenres       []string         `json:"music_genres,omitempty" validate:"dive,max=100"`
	TargetCountry     string           `json:"target_country,omitempty" validate:"max=100"`
	PayPerScan        *decimal.Decimal `json:"pay_per_scan,omitempty"`
}

// Service creates and reads campaigns
type Service struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewService creates a new campaign service
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		validate: validator.New(),
	}
}

// SubmitCampaign stores a new campaign in submitted status with its full
// budget available as credit
func (s *Service) SubmitCampaign(ctx context.Context, input SubmitCampaignInput) (*models.Campaign, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !input.Budget.IsPositive() {
		return nil, ErrInvalidBudget
	}
	objective := models.CampaignObjective(strings.TrimSpace(input.Objective))
	if !objective.Valid() {
		return nil, ErrUnknownObjective
	}

	targeting := models.CampaignTargeting{
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		BusinessName:  strings.TrimSpace(input.BusinessName),
		BusinessTypes: input.BusinessTypes,
		MusicGenres:   input.MusicGenres,
		TargetCountry: strings.TrimSpace(input.TargetCountry),
		PayPerScan:    input.PayPerScan,
	}

	client, err := s.loadClient(ctx, input.ClientID)
	if err != nil {
		return nil, err
	}

	campaign := &models.Campaign{
		ClientID:          client.ID,
		Name:              strings.TrimSpace(input.Name),
		Budget:            input.Budget.Round(2),
		CampaignCredit:    input.Budget.Round(2),
		SpentAmount:       decimal.Zero,
		Objective:         objective,
		ExplainerVideoURL: strings.TrimSpace(input.ExplainerVideoURL),
		Metadata:          datatypes.NewJSONType(targeting),
		Status:            models.CampaignStatusSubmitted,
	}
	if input.CostPerClick != nil && input.CostPerClick.IsPositive() {
		campaign.CostPerClick = input.CostPerClick.Round(2)
	}
	if _, _, err := campaign.Window(); err != nil {
		return nil, ErrEndBeforeStart
	}

	campaign.MaxScans = settlement.MaxScansForBudget(campaign.Budget, settlement.PayPerScan(campaign, client))

	if err := s.db.WithContext(ctx).Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	zap.L().Info("campaign submitted",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.String("budget", campaign.Budget.StringFixed(2)),
		zap.Int64("max_scans", campaign.MaxScans),
	)
	return campaign, nil
}

// GetCampaign returns a campaign by id
func (s *Service) GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.db.WithContext(ctx).First(&campaign, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	return &campaign, nil
}

func (s *Service) loadClient(ctx context.Context, rawID string) (*models.User, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var client models.User
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	if client.Role != models.RoleClient {
		return nil, ErrNotClient
	}
	return &client, nil
}
