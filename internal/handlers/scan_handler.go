package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/daya/backend/internal/services/qrcode"
	"github.com/daya/backend/internal/services/scan"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const noActiveCampaignMessage = "no active campaigns, try again later"

// ScanRecorder records a scan and settles it
type ScanRecorder interface {
	RecordScan(ctx context.Context, input scan.RecordScanInput) (*scan.ScanResult, error)
}

// ScanHandler handles the public scan endpoint
type ScanHandler struct {
	scans ScanRecorder
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scans ScanRecorder) *ScanHandler {
	return &ScanHandler{scans: scans}
}

// RecordScan records a QR scan. The response only says whether the scan
// earned; why a scan did not earn is never revealed.
func (h *ScanHandler) RecordScan(c *gin.Context) {
	var input scan.RecordScanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	input.IPAddress = c.ClientIP()
	if input.UserAgent == "" {
		input.UserAgent = c.Request.UserAgent()
	}

	result, err := h.scans.RecordScan(c.Request.Context(), input)
	if err != nil {
		status, message := scanErrorStatus(err)
		if status == http.StatusInternalServerError {
			zap.L().Error("failed to record scan", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": message})
		return
	}

	response := gin.H{
		"scan_id": result.Scan.ID,
		"earned":  result.Earned,
	}
	if result.NoActiveCampaign {
		response["message"] = noActiveCampaignMessage
	}
	if result.Campaign != nil {
		response["campaign_id"] = result.Campaign.ID
	}
	c.JSON(http.StatusOK, response)
}

func scanErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, scan.ErrInvalidInput), errors.Is(err, scan.ErrMissingSignal):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, scan.ErrNotDCD), errors.Is(err, scan.ErrCampaignMismatch):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, qrcode.ErrInvalidSignature):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, scan.ErrDCDNotFound), errors.Is(err, scan.ErrCampaignNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "failed to record scan"
	}
}
