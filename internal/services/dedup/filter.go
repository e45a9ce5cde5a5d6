package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/services/lifecycle"
	"gorm.io/gorm"
)

// Reason explains why a scan was not billed
type Reason string

const (
	ReasonAlreadySettled      Reason = "already_settled"
	ReasonCampaignExhausted   Reason = "campaign_exhausted"
	ReasonDCDMismatch         Reason = "dcd_mismatch"
	ReasonFingerprintLifetime Reason = "fingerprint_already_earned"
	ReasonIPLifetime          Reason = "ip_already_earned"
	ReasonFingerprintWindow   Reason = "fingerprint_window"
	ReasonIPWindow            Reason = "ip_window"
	ReasonIPBurst             Reason = "ip_burst"
)

// Decision is the outcome of running a scan through the filter
type Decision struct {
	Accepted bool
	Reason   Reason
	// CampaignCompleted is set when the capacity guard completed the campaign
	CampaignCompleted bool
}

func accept() Decision {
	return Decision{Accepted: true}
}

func reject(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Windows are the look-back periods of the short-window guards
type Windows struct {
	Fingerprint time.Duration
	IP          time.Duration
	IPBurst     time.Duration
}

// DefaultWindows returns the 30, 10 and 2 minute windows
func DefaultWindows() Windows {
	return Windows{
		Fingerprint: 30 * time.Minute,
		IP:          10 * time.Minute,
		IPBurst:     2 * time.Minute,
	}
}

// Filter decides whether a scan is billable
type Filter struct {
	windows Windows
	now     func() time.Time
}

// NewFilter creates a new Filter. Zero windows fall back to the defaults.
func NewFilter(windows Windows) *Filter {
	defaults := DefaultWindows()
	if windows.Fingerprint <= 0 {
		windows.Fingerprint = defaults.Fingerprint
	}
	if windows.IP <= 0 {
		windows.IP = defaults.IP
	}
	if windows.IPBurst <= 0 {
		windows.IPBurst = defaults.IPBurst
	}

	return &Filter{
		windows: windows,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate runs the guards in order and stops at the first one that
// rejects. tx must be the transaction the scan will be settled in. The
// capacity guard completes an exhausted campaign through tx even though
// the scan itself is dropped.
func (f *Filter) Evaluate(ctx context.Context, tx *gorm.DB, scan *models.Scan, campaign *models.Campaign) (Decision, error) {
	tx = tx.WithContext(ctx)

	settled, err := f.alreadySettled(tx, scan)
	if err != nil {
		return Decision{}, err
	}
	if settled {
		return reject(ReasonAlreadySettled), nil
	}

	if !campaign.CanAcceptScans() {
		decision := reject(ReasonCampaignExhausted)
		if campaign.Status != models.CampaignStatusCompleted {
			completed, err := lifecycle.AutoComplete(tx, campaign.ID, f.now())
			if err != nil {
				return Decision{}, err
			}
			decision.CampaignCompleted = completed
		}
		return decision, nil
	}

	if campaign.DCDID == nil || *campaign.DCDID != scan.DCDID {
		return reject(ReasonDCDMismatch), nil
	}

	fingerprint := strings.TrimSpace(scan.DeviceFingerprint)
	ip := ScanIP(scan)

	if fingerprint != "" {
		earned, err := f.earnedBefore(tx, scan, campaign, "scans.device_fingerprint", fingerprint)
		if err != nil {
			return Decision{}, err
		}
		if earned {
			return reject(ReasonFingerprintLifetime), nil
		}
	}

	if ip != "" {
		earned, err := f.earnedBefore(tx, scan, campaign, "scans.ip_address", ip)
		if err != nil {
			return Decision{}, err
		}
		if earned {
			return reject(ReasonIPLifetime), nil
		}
	}

	windowGuards := []struct {
		column string
		value  string
		window time.Duration
		reason Reason
	}{
		{"device_fingerprint", fingerprint, f.windows.Fingerprint, ReasonFingerprintWindow},
		{"ip_address", ip, f.windows.IP, ReasonIPWindow},
		{"ip_address", ip, f.windows.IPBurst, ReasonIPBurst},
	}
	for _, guard := range windowGuards {
		if guard.value == "" {
			continue
		}
		recent, err := f.scannedWithin(tx, scan, campaign, guard.column, guard.value, guard.window)
		if err != nil {
			return Decision{}, err
		}
		if recent {
			return reject(guard.reason), nil
		}
	}

	return accept(), nil
}

// ScanIP returns the server-observed IP. The geo bag holds the client's
// own claim and is never used for dedup.
func ScanIP(scan *models.Scan) string {
	return strings.TrimSpace(scan.IPAddress)
}

func (f *Filter) alreadySettled(tx *gorm.DB, scan *models.Scan) (bool, error) {
	var count int64
	err := tx.Model(&models.Earning{}).
		Where("type = ? AND scan_id = ?", models.EarningTypeScan, scan.ID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing earnings: %w", err)
	}
	return count > 0, nil
}

// earnedBefore reports whether another scan of the campaign sharing the
// given signal already produced a scan earning
func (f *Filter) earnedBefore(tx *gorm.DB, scan *models.Scan, campaign *models.Campaign, column, value string) (bool, error) {
	var count int64
	err := tx.Model(&models.Earning{}).
		Joins("JOIN scans ON scans.id = earnings.scan_id").
		Where("earnings.type = ? AND earnings.campaign_id = ?", models.EarningTypeScan, campaign.ID).
		Where(column+" = ? AND scans.id <> ?", value, scan.ID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check lifetime earnings on %s: %w", column, err)
	}
	return count > 0, nil
}

// scannedWithin reports whether an earlier scan of the campaign sharing the
// given signal was recorded inside the window before this one. Scans with
// the same timestamp are ordered by id.
func (f *Filter) scannedWithin(tx *gorm.DB, scan *models.Scan, campaign *models.Campaign, column, value string, window time.Duration) (bool, error) {
	since := scan.CreatedAt.Add(-window)

	var count int64
	err := tx.Model(&models.Scan{}).
		Where("campaign_id = ? AND "+column+" = ? AND id <> ?", campaign.ID, value, scan.ID).
		Where("created_at >= ?", since).
		Where("(created_at < ? OR (created_at = ? AND id < ?))", scan.CreatedAt, scan.CreatedAt, scan.ID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check recent scans on %s: %w", column, err)
	}
	return count > 0, nil
}
