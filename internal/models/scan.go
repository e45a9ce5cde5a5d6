package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ScanGeo is the request context captured with a scan. IPAddress here is
// the client-reported address and is informational only.
type ScanGeo struct {
	IPAddress string   `json:"ip_address,omitempty"`
	UserAgent string   `json:"user_agent,omitempty"`
	Country   string   `json:"country,omitempty"`
	City      string   `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Scan is a single QR code scan at a DCD location
type Scan struct {
	Base
	DCDID             uuid.UUID                   `gorm:"column:dcd_id;type:uuid;not null;index" json:"dcd_id"`
	CampaignID        *uuid.UUID                  `gorm:"type:uuid;index" json:"campaign_id,omitempty"`
	Campaign          *Campaign                   `gorm:"foreignKey:CampaignID" json:"-"`
	ScannedAt         time.Time                   `gorm:"not null" json:"scanned_at"`
	DeviceFingerprint string                      `gorm:"type:varchar(255);index" json:"device_fingerprint,omitempty"`
	IPAddress         string                      `gorm:"column:ip_address;type:varchar(64);index" json:"ip_address,omitempty"`
	Geo               datatypes.JSONType[ScanGeo] `gorm:"column:geo" json:"geo"`
	Earnings          decimal.NullDecimal         `gorm:"type:decimal(20,2)" json:"earnings"`
}

// IsSettled reports whether earnings have been stamped on the scan
func (s *Scan) IsSettled() bool {
	return s.Earnings.Valid
}
