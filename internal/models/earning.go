package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EarningType describes why an earning was recorded
type EarningType string

const (
	EarningTypeScan          EarningType = "scan"
	EarningTypeCommission    EarningType = "commission"
	EarningTypeReferralBonus EarningType = "referral_bonus"
	EarningTypeVentureShare  EarningType = "venture_share"
)

// EarningStatus represents the payout state of an earning
type EarningStatus string

const (
	EarningStatusPending EarningStatus = "pending"
	EarningStatusPaid    EarningStatus = "paid"
)

// RecipientRole identifies which share of a scan payout an earning holds
type RecipientRole string

const (
	RecipientDCD      RecipientRole = "dcd"
	RecipientCompany  RecipientRole = "company"
	RecipientReferrer RecipientRole = "referrer"
)

// Earning is a ledger entry owed to a user
type Earning struct {
	Base
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User           `gorm:"foreignKey:UserID" json:"-"`
	CampaignID    *uuid.UUID      `gorm:"type:uuid;index" json:"campaign_id,omitempty"`
	ScanID        *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_earnings_scan_recipient,priority:2" json:"scan_id,omitempty"`
	Type          EarningType     `gorm:"type:varchar(30);not null;uniqueIndex:idx_earnings_scan_recipient,priority:1" json:"type"`
	RecipientRole RecipientRole   `gorm:"type:varchar(20);uniqueIndex:idx_earnings_scan_recipient,priority:3" json:"recipient_role,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status        EarningStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Description   string          `gorm:"type:text" json:"description"`
	Month         string          `gorm:"type:varchar(7);index" json:"month"`
}
