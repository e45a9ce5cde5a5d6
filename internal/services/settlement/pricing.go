package settlement

import (
	"github.com/daya/backend/internal/models"
	"github.com/shopspring/decimal"
)

// objectiveRate is the per-scan price in KSh without and with an
// explainer video
type objectiveRate struct {
	base      int64
	withVideo int64
}

var objectiveRates = map[models.CampaignObjective]objectiveRate{
	models.ObjectiveMusicPromotion:   {base: 1, withVideo: 1},
	models.ObjectiveAppDownloads:     {base: 5, withVideo: 5},
	models.ObjectiveProductLaunch:    {base: 5, withVideo: 5},
	models.ObjectiveApartmentListing: {base: 5, withVideo: 5},
	models.ObjectiveBrandAwareness:   {base: 1, withVideo: 5},
	models.ObjectiveEventPromotion:   {base: 1, withVideo: 5},
	models.ObjectiveSocialCause:      {base: 1, withVideo: 5},
}

var defaultRate = objectiveRate{base: 1, withVideo: 1}

// nairaMultiplier converts table prices for clients billed in Naira
var nairaMultiplier = decimal.NewFromInt(10)

// BaseRate looks up the table price for an objective
func BaseRate(objective models.CampaignObjective, hasExplainerVideo bool) decimal.Decimal {
	rate, ok := objectiveRates[objective]
	if !ok {
		rate = defaultRate
	}
	if hasExplainerVideo {
		return decimal.NewFromInt(rate.withVideo)
	}
	return decimal.NewFromInt(rate.base)
}

// PayPerScan prices one billable scan in cents. A positive cost per click
// wins, then a positive pay_per_scan in the targeting metadata, then the
// objective table. Only table prices get the Nigeria multiplier.
func PayPerScan(campaign *models.Campaign, client *models.User) decimal.Decimal {
	if cpc := campaign.CostPerClick.Round(2); cpc.IsPositive() {
		return cpc
	}

	if pps := campaign.Targeting().PayPerScan; pps != nil && pps.Round(2).IsPositive() {
		return pps.Round(2)
	}

	rate := BaseRate(campaign.Objective, campaign.HasExplainerVideo())
	if client.IsNigerian() {
		rate = rate.Mul(nairaMultiplier)
	}
	return rate.Round(2)
}

// MaxScansForBudget is the informational scan cap for a budget
func MaxScansForBudget(budget, payPerScan decimal.Decimal) int64 {
	if !payPerScan.IsPositive() || !budget.IsPositive() {
		return 0
	}
	return budget.Div(payPerScan).Floor().IntPart()
}
