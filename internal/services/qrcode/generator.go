package qrcode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/utils"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const codeLength = 6

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrNotAssigned      = errors.New("campaign has no assigned dcd")
	ErrInvalidSignature = errors.New("invalid scan link signature")
)

// Generator builds the signed links printed on a DCD's QR code
type Generator struct {
	db      *gorm.DB
	baseURL string
	secret  string
}

// NewGenerator creates a new Generator
func NewGenerator(db *gorm.DB, baseURL, secret string) *Generator {
	return &Generator{
		db:      db,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
	}
}

// BuildLink returns {base}/s/{slug}-{code}?campaign=..&dcd=..&sig=..
func (g *Generator) BuildLink(campaign *models.Campaign, dcd *models.User) string {
	query := url.Values{}
	query.Set("campaign", campaign.ID.String())
	query.Set("dcd", dcd.ID.String())
	query.Set("sig", g.Sign(campaign.ID, dcd.ID))

	return fmt.Sprintf("%s/s/%s-%s?%s", g.baseURL, linkSlug(campaign, dcd), utils.GenerateCode(codeLength), query.Encode())
}

// Sign returns the signature binding a campaign to a DCD
func (g *Generator) Sign(campaignID, dcdID uuid.UUID) string {
	return utils.SignHMAC(signedPayload(campaignID, dcdID), g.secret)
}

// Verify checks a signature taken from a scanned link
func (g *Generator) Verify(campaignID, dcdID uuid.UUID, sig string) error {
	if sig == "" || !utils.VerifyHMAC(signedPayload(campaignID, dcdID), sig, g.secret) {
		return ErrInvalidSignature
	}
	return nil
}

// GenerateArtifact builds the link for the campaign's assigned DCD and
// stores it on the campaign
func (g *Generator) GenerateArtifact(ctx context.Context, campaignID uuid.UUID) (string, error) {
	var campaign models.Campaign
	if err := g.db.WithContext(ctx).Preload("DCD").First(&campaign, "id = ?", campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrCampaignNotFound
		}
		return "", fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign.DCDID == nil || campaign.DCD == nil {
		return "", ErrNotAssigned
	}

	link := g.BuildLink(&campaign, campaign.DCD)
	if err := g.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ?", campaign.ID).
		Update("qr_code_url", link).Error; err != nil {
		return "", fmt.Errorf("failed to store qr link: %w", err)
	}

	zap.L().Info("campaign qr link generated",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("dcd_id", campaign.DCD.ID.String()),
	)
	return link, nil
}

func signedPayload(campaignID, dcdID uuid.UUID) string {
	return campaignID.String() + ":" + dcdID.String()
}

// linkSlug prefers the DCD's business, then the targeted business, then
// the campaign name
func linkSlug(campaign *models.Campaign, dcd *models.User) string {
	for _, candidate := range []string{dcd.BusinessName, campaign.Targeting().BusinessName, campaign.Name} {
		if s := slug.Make(candidate); s != "" {
			return s
		}
	}
	return "daya"
}
