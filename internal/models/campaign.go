package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CampaignStatus represents the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusSubmitted   CampaignStatus = "submitted"
	CampaignStatusUnderReview CampaignStatus = "under_review"
	CampaignStatusApproved    CampaignStatus = "approved"
	CampaignStatusRejected    CampaignStatus = "rejected"
	CampaignStatusActive      CampaignStatus = "active"
	CampaignStatusLive        CampaignStatus = "live"
	CampaignStatusCompleted   CampaignStatus = "completed"
)

// BookingStatuses are the statuses that reserve a DCD for the campaign window
var BookingStatuses = []CampaignStatus{
	CampaignStatusSubmitted,
	CampaignStatusApproved,
	CampaignStatusActive,
	CampaignStatusLive,
}

// ScanEligibleStatuses are the statuses in which a campaign receives scans
var ScanEligibleStatuses = []CampaignStatus{
	CampaignStatusApproved,
	CampaignStatusLive,
}

// CampaignObjective classifies what a campaign promotes
type CampaignObjective string

const (
	ObjectiveMusicPromotion   CampaignObjective = "music_promotion"
	ObjectiveAppDownloads     CampaignObjective = "app_downloads"
	ObjectiveProductLaunch    CampaignObjective = "product_launch"
	ObjectiveApartmentListing CampaignObjective = "apartment_listing"
	ObjectiveBrandAwareness   CampaignObjective = "brand_awareness"
	ObjectiveEventPromotion   CampaignObjective = "event_promotion"
	ObjectiveSocialCause      CampaignObjective = "social_cause"
)

// Valid reports whether the objective is one of the known values
func (o CampaignObjective) Valid() bool {
	switch o {
	case ObjectiveMusicPromotion, ObjectiveAppDownloads, ObjectiveProductLaunch,
		ObjectiveApartmentListing, ObjectiveBrandAwareness, ObjectiveEventPromotion,
		ObjectiveSocialCause:
		return true
	}
	return false
}

// CampaignTargeting is the targeting metadata stored with a campaign.
// Every field is optional.
type CampaignTargeting struct {
	StartDate     string           `json:"start_date,omitempty"`
	EndDate       string           `json:"end_date,omitempty"`
	BusinessName  string           `json:"business_name,omitempty"`
	BusinessTypes []string         `json:"business_types,omitempty"`
	MusicGenres   []string         `json:"music_genres,omitempty"`
	TargetCountry string           `json:"target_country,omitempty"`
	PayPerScan    *decimal.Decimal `json:"pay_per_scan,omitempty"`
}

// Campaign represents a client's paid campaign
type Campaign struct {
	Base
	ClientID          uuid.UUID                             `gorm:"type:uuid;not null;index" json:"client_id"`
	Client            *User                                 `gorm:"foreignKey:ClientID" json:"-"`
	DCDID             *uuid.UUID                            `gorm:"column:dcd_id;type:uuid;index" json:"dcd_id,omitempty"`
	DCD               *User                                 `gorm:"foreignKey:DCDID" json:"-"`
	Name              string                                `gorm:"type:varchar(255)" json:"name"`
	Budget            decimal.Decimal                       `gorm:"type:decimal(20,2);not null;default:0" json:"budget"`
	CostPerClick      decimal.Decimal                       `gorm:"type:decimal(20,2);not null;default:0" json:"cost_per_click"`
	CampaignCredit    decimal.Decimal                       `gorm:"type:decimal(20,2);not null;default:0" json:"campaign_credit"`
	SpentAmount       decimal.Decimal                       `gorm:"type:decimal(20,2);not null;default:0" json:"spent_amount"`
	MaxScans          int64                                 `gorm:"not null;default:0" json:"max_scans"`
	TotalScans        int64                                 `gorm:"not null;default:0" json:"total_scans"`
	Objective         CampaignObjective                     `gorm:"column:campaign_objective;type:varchar(50);not null" json:"campaign_objective"`
	ExplainerVideoURL string                                `gorm:"type:text" json:"explainer_video_url,omitempty"`
	Metadata          datatypes.JSONType[CampaignTargeting] `gorm:"column:metadata" json:"metadata"`
	Status            CampaignStatus                        `gorm:"type:varchar(20);not null;index" json:"status"`
	CompletedAt       *time.Time                            `json:"completed_at,omitempty"`
	QRCodeURL         string                                `gorm:"column:qr_code_url;type:text" json:"qr_code_url,omitempty"`
}

// Targeting returns the decoded targeting metadata
func (c *Campaign) Targeting() CampaignTargeting {
	return c.Metadata.Data()
}

// HasExplainerVideo reports whether the client supplied an explainer video
func (c *Campaign) HasExplainerVideo() bool {
	return strings.TrimSpace(c.ExplainerVideoURL) != ""
}

// CanAcceptScans reports whether the campaign still has credit and scan capacity
func (c *Campaign) CanAcceptScans() bool {
	if !c.CampaignCredit.IsPositive() {
		return false
	}
	return c.MaxScans == 0 || c.TotalScans < c.MaxScans
}

// IsTerminal reports whether no further transition is possible
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignStatusCompleted || c.Status == CampaignStatusRejected
}

// Window returns the inclusive start and end days of the campaign
func (c *Campaign) Window() (time.Time, time.Time, error) {
	t := c.Targeting()

	start, err := ParseTargetDate(t.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseTargetDate(t.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end date is before start date")
	}
	return start, end, nil
}

// ActiveOn reports whether the calendar day of now, in its own location,
// falls inside the campaign window
func (c *Campaign) ActiveOn(now time.Time) (bool, error) {
	start, end, err := c.Window()
	if err != nil {
		return false, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return !today.Before(start) && !today.After(end), nil
}

// Overlaps reports whether two campaign windows share at least one day
func (c *Campaign) Overlaps(other *Campaign) (bool, error) {
	start, end, err := c.Window()
	if err != nil {
		return false, err
	}
	otherStart, otherEnd, err := other.Window()
	if err != nil {
		return false, err
	}
	return !otherStart.After(end) && !otherEnd.Before(start), nil
}
