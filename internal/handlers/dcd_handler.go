package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/daya/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActiveCampaignSelector finds the campaign a DCD is running today
type ActiveCampaignSelector interface {
	GetActiveCampaignForDCD(ctx context.Context, dcd *models.User) (*models.Campaign, error)
}

// DCDHandler handles DCD-facing requests
type DCDHandler struct {
	db       *gorm.DB
	selector ActiveCampaignSelector
}

// NewDCDHandler creates a new DCD handler
func NewDCDHandler(db *gorm.DB, selector ActiveCampaignSelector) *DCDHandler {
	return &DCDHandler{
		db:       db,
		selector: selector,
	}
}

// GetActiveCampaign returns the campaign the DCD's QR code currently serves
func (h *DCDHandler) GetActiveCampaign(c *gin.Context) {
	dcdID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid DCD ID"})
		return
	}

	var dcd models.User
	if err := h.db.WithContext(c.Request.Context()).First(&dcd, "id = ?", dcdID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "DCD not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load DCD"})
		return
	}
	if !dcd.IsDCD() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "user must be a DCD"})
		return
	}

	active, err := h.selector.GetActiveCampaignForDCD(c.Request.Context(), &dcd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load active campaign"})
		return
	}
	if active == nil {
		c.JSON(http.StatusOK, gin.H{"campaign": nil, "message": noActiveCampaignMessage})
		return
	}

	c.JSON(http.StatusOK, gin.H{"campaign": active})
}
