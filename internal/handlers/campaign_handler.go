package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/services/campaign"
	"github.com/daya/backend/internal/services/lifecycle"
	"github.com/daya/backend/internal/services/matching"
	"github.com/daya/backend/internal/services/settlement"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CampaignStore creates and reads campaigns
type CampaignStore interface {
	SubmitCampaign(ctx context.Context, input campaign.SubmitCampaignInput) (*models.Campaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
}

// Lifecycle performs admin status transitions
type Lifecycle interface {
	MarkUnderReview(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error)
	Approve(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error)
	Reject(ctx context.Context, campaignID uuid.UUID, reason string) (*models.Campaign, error)
	Complete(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error)
}

// Matcher assigns DCDs to campaigns
type Matcher interface {
	AssignDCD(ctx context.Context, campaignID uuid.UUID) (*models.User, error)
}

// Pricer quotes the per-scan price of a campaign
type Pricer interface {
	ComputePayPerScan(ctx context.Context, campaignID uuid.UUID) (decimal.Decimal, error)
}

// CampaignHandler handles campaign and admin campaign requests
type CampaignHandler struct {
	campaigns CampaignStore
	lifecycle Lifecycle
	matcher   Matcher
	pricer    Pricer
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaigns CampaignStore, lifecycle Lifecycle, matcher Matcher, pricer Pricer) *CampaignHandler {
	return &CampaignHandler{
		campaigns: campaigns,
		lifecycle: lifecycle,
		matcher:   matcher,
		pricer:    pricer,
	}
}

// SubmitCampaign creates a campaign in submitted status
func (h *CampaignHandler) SubmitCampaign(c *gin.Context) {
	var input campaign.SubmitCampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.campaigns.SubmitCampaign(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetCampaign returns a campaign by id
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	found, err := h.campaigns.GetCampaign(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

// GetPayPerScan returns the price of one billable scan
func (h *CampaignHandler) GetPayPerScan(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	pay, err := h.pricer.ComputePayPerScan(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaign_id":  id,
		"pay_per_scan": pay.StringFixed(2),
	})
}

// MarkUnderReview notifies admins and moves the campaign to under_review
func (h *CampaignHandler) MarkUnderReview(c *gin.Context) {
	h.transition(c, h.lifecycle.MarkUnderReview)
}

// ApproveCampaign approves a campaign under review
func (h *CampaignHandler) ApproveCampaign(c *gin.Context) {
	h.transition(c, h.lifecycle.Approve)
}

// RejectCampaign rejects a campaign under review
func (h *CampaignHandler) RejectCampaign(c *gin.Context) {
	var input struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	h.transition(c, func(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
		return h.lifecycle.Reject(ctx, id, input.Reason)
	})
}

// CompleteCampaign completes an approved campaign
func (h *CampaignHandler) CompleteCampaign(c *gin.Context) {
	h.transition(c, h.lifecycle.Complete)
}

// AssignDCD runs matching for a campaign immediately
func (h *CampaignHandler) AssignDCD(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	dcd, err := h.matcher.AssignDCD(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if dcd == nil {
		c.JSON(http.StatusOK, gin.H{"assigned": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assigned": true,
		"dcd_id":   dcd.ID,
	})
}

func (h *CampaignHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*models.Campaign, error)) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	updated, err := apply(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *CampaignHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, campaign.ErrCampaignNotFound),
		errors.Is(err, lifecycle.ErrCampaignNotFound),
		errors.Is(err, matching.ErrCampaignNotFound),
		errors.Is(err, settlement.ErrCampaignNotFound),
		errors.Is(err, campaign.ErrClientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, campaign.ErrInvalidInput),
		errors.Is(err, campaign.ErrInvalidBudget),
		errors.Is(err, campaign.ErrUnknownObjective),
		errors.Is(err, campaign.ErrEndBeforeStart),
		errors.Is(err, matching.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, campaign.ErrNotClient):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrNotSubmitted),
		errors.Is(err, lifecycle.ErrNotUnderReview),
		errors.Is(err, lifecycle.ErrNotApproved),
		errors.Is(err, matching.ErrCampaignClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		zap.L().Error("campaign request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func campaignID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign ID"})
		return uuid.Nil, false
	}
	return id, true
}
