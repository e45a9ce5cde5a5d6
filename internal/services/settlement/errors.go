package settlement

import (
	"errors"
	"fmt"

	"github.com/daya/backend/internal/services/dedup"
)

// Reasons raised by the settlement engine itself, alongside the filter's
const (
	ReasonNoCampaign         dedup.Reason = "no_campaign"
	ReasonCampaignNotLive    dedup.Reason = "campaign_not_live"
	ReasonInsufficientCredit dedup.Reason = "insufficient_credit"
)

var (
	ErrScanNotFound      = errors.New("scan not found")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrInvalidPayout     = errors.New("payout must be positive")
	ErrConcurrentSettled = errors.New("scan was settled concurrently")
)

// RejectionError reports a scan that was deliberately not billed. It is
// not a fault: callers should treat it as "no earning".
type RejectionError struct {
	Reason dedup.Reason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("scan rejected: %s", e.Reason)
}

// IsRejection reports whether err is a RejectionError and returns it
func IsRejection(err error) (*RejectionError, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}
