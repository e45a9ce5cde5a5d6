package models

import (
	"github.com/google/uuid"
)

// ReferralType encodes the roles of referrer and referred user
type ReferralType string

const (
	ReferralDAToDCD    ReferralType = "da_to_dcd"
	ReferralAdminToDCD ReferralType = "admin_to_dcd"
	ReferralDCDToDA    ReferralType = "dcd_to_da"
	ReferralAdminToDA  ReferralType = "admin_to_da"
	ReferralDAToDA     ReferralType = "da_to_da"
)

// DCDReferralTypes are the referral kinds that earn a commission on a DCD's scans
var DCDReferralTypes = []ReferralType{ReferralDAToDCD, ReferralAdminToDCD}

// Referral represents a referral record
type Referral struct {
	Base
	ReferrerID uuid.UUID    `gorm:"type:uuid;not null;index" json:"referrer_id"`
	Referrer   *User        `gorm:"foreignKey:ReferrerID" json:"-"`
	ReferredID uuid.UUID    `gorm:"type:uuid;not null;index" json:"referred_id"`
	Referred   *User        `gorm:"foreignKey:ReferredID" json:"-"`
	Type       ReferralType `gorm:"type:varchar(30);not null;index" json:"type"`
}
