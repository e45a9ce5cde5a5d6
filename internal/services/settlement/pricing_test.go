package settlement

import (
	"testing"

	"github.com/daya/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestBaseRate(t *testing.T) {
	tests := []struct {
		objective models.CampaignObjective
		video     bool
		want      string
	}{
		{models.ObjectiveMusicPromotion, false, "1"},
		{models.ObjectiveMusicPromotion, true, "1"},
		{models.ObjectiveAppDownloads, false, "5"},
		{models.ObjectiveApartmentListing, true, "5"},
		{models.ObjectiveBrandAwareness, false, "1"},
		{models.ObjectiveBrandAwareness, true, "5"},
		{models.ObjectiveSocialCause, true, "5"},
		{models.CampaignObjective("unknown"), true, "1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.objective), func(t *testing.T) {
			assert.Equal(t, tt.want, BaseRate(tt.objective, tt.video).String())
		})
	}
}

func TestPayPerScan(t *testing.T) {
	kenyan := &models.User{CountryCode: "KE", CountryName: "Kenya"}
	nigerian := &models.User{CountryName: "Nigeria"}
	campaign := &models.Campaign{Objective: models.ObjectiveBrandAwareness}

	t.Run("table price for kenyan client", func(t *testing.T) {
		assert.Equal(t, "1", PayPerScan(campaign, kenyan).String())
	})

	t.Run("nigerian client pays ten times the table price", func(t *testing.T) {
		assert.Equal(t, "10", PayPerScan(campaign, nigerian).String())
	})

	t.Run("missing client gets no multiplier", func(t *testing.T) {
		assert.Equal(t, "1", PayPerScan(campaign, nil).String())
	})

	t.Run("cost per click wins without multiplier", func(t *testing.T) {
		c := &models.Campaign{Objective: models.ObjectiveAppDownloads, CostPerClick: decimal.NewFromFloat(2.5)}
		assert.Equal(t, "2.5", PayPerScan(c, nigerian).String())
	})

	t.Run("targeting pay per scan beats the table", func(t *testing.T) {
		pps := decimal.NewFromInt(3)
		c := &models.Campaign{
			Objective: models.ObjectiveAppDownloads,
			Metadata:  datatypes.NewJSONType(models.CampaignTargeting{PayPerScan: &pps}),
		}
		assert.Equal(t, "3", PayPerScan(c, nigerian).String())
	})

	t.Run("prices are rounded to cents", func(t *testing.T) {
		pps := decimal.RequireFromString("0.333")
		c := &models.Campaign{
			Objective: models.ObjectiveAppDownloads,
			Metadata:  datatypes.NewJSONType(models.CampaignTargeting{PayPerScan: &pps}),
		}
		assert.Equal(t, "0.33", PayPerScan(c, kenyan).String())

		c = &models.Campaign{Objective: models.ObjectiveAppDownloads, CostPerClick: decimal.RequireFromString("1.005")}
		assert.Equal(t, "1.01", PayPerScan(c, kenyan).String())
	})

	t.Run("sub-cent overrides fall through", func(t *testing.T) {
		pps := decimal.RequireFromString("0.004")
		c := &models.Campaign{
			Objective: models.ObjectiveAppDownloads,
			Metadata:  datatypes.NewJSONType(models.CampaignTargeting{PayPerScan: &pps}),
		}
		assert.Equal(t, "5", PayPerScan(c, kenyan).String())
	})

	t.Run("non-positive overrides fall through", func(t *testing.T) {
		zero := decimal.Zero
		c := &models.Campaign{
			Objective:         models.ObjectiveEventPromotion,
			ExplainerVideoURL: "https://video.example/x.mp4",
			Metadata:          datatypes.NewJSONType(models.CampaignTargeting{PayPerScan: &zero}),
		}
		assert.Equal(t, "5", PayPerScan(c, kenyan).String())
	})
}

func TestMaxScansForBudget(t *testing.T) {
	assert.Equal(t, int64(2), MaxScansForBudget(decimal.NewFromInt(10), decimal.NewFromInt(5)))
	assert.Equal(t, int64(3), MaxScansForBudget(decimal.NewFromInt(10), decimal.NewFromInt(3)))
	assert.Equal(t, int64(0), MaxScansForBudget(decimal.NewFromInt(10), decimal.Zero))
}
