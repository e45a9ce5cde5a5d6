package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func campaignWithWindow(start, end string) *Campaign {
	return &Campaign{
		Metadata: datatypes.NewJSONType(CampaignTargeting{StartDate: start, EndDate: end}),
	}
}

func TestCanAcceptScans(t *testing.T) {
	tests := []struct {
		name   string
		credit string
		max    int64
		total  int64
		want   bool
	}{
		{"credit and no cap", "10", 0, 50, true},
		{"credit under cap", "10", 2, 1, true},
		{"cap reached", "10", 2, 2, false},
		{"no credit", "0", 0, 0, false},
		{"negative credit", "-1", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Campaign{
				CampaignCredit: decimal.RequireFromString(tt.credit),
				MaxScans:       tt.max,
				TotalScans:     tt.total,
			}
			assert.Equal(t, tt.want, c.CanAcceptScans())
		})
	}
}

func TestActiveOnIsInclusive(t *testing.T) {
	c := campaignWithWindow("2025-03-01", "2025-03-31")

	for day, want := range map[string]bool{
		"2025-02-28": false,
		"2025-03-01": true,
		"2025-03-15": true,
		"2025-03-31": true,
		"2025-04-01": false,
	} {
		now, err := time.Parse(DateLayout, day)
		require.NoError(t, err)
		got, err := c.ActiveOn(now.Add(23 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, want, got, day)
	}
}

func TestActiveOnUsesCallerLocation(t *testing.T) {
	c := campaignWithWindow("2025-03-01", "2025-03-31")
	nairobi := time.FixedZone("EAT", 3*60*60)

	// 22:00 UTC on the last day is already the next day in Nairobi
	now := time.Date(2025, 3, 31, 22, 0, 0, 0, time.UTC)

	inUTC, err := c.ActiveOn(now)
	require.NoError(t, err)
	inNairobi, err := c.ActiveOn(now.In(nairobi))
	require.NoError(t, err)

	assert.True(t, inUTC)
	assert.False(t, inNairobi)
}

func TestWindowErrors(t *testing.T) {
	_, _, err := campaignWithWindow("", "2025-03-31").Window()
	assert.ErrorIs(t, err, ErrMissingDate)

	_, _, err = campaignWithWindow("yesterday", "2025-03-31").Window()
	assert.Error(t, err)

	_, _, err = campaignWithWindow("2025-04-01", "2025-03-01").Window()
	assert.Error(t, err)

	start, end, err := campaignWithWindow("2025-03-01T10:00:00Z", "2025-03-02").Window()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", start.Format(DateLayout))
	assert.Equal(t, "2025-03-02", end.Format(DateLayout))
}

func TestOverlaps(t *testing.T) {
	base := campaignWithWindow("2025-03-10", "2025-03-20")

	tests := []struct {
		start, end string
		want       bool
	}{
		{"2025-03-01", "2025-03-09", false},
		{"2025-03-01", "2025-03-10", true},
		{"2025-03-12", "2025-03-15", true},
		{"2025-03-20", "2025-03-30", true},
		{"2025-03-21", "2025-03-30", false},
	}

	for _, tt := range tests {
		got, err := base.Overlaps(campaignWithWindow(tt.start, tt.end))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s..%s", tt.start, tt.end)
	}

	_, err := base.Overlaps(campaignWithWindow("", ""))
	assert.Error(t, err)
}

func TestTargetingToleratesMissingKeys(t *testing.T) {
	var c Campaign
	require.NoError(t, c.Metadata.Scan([]byte(`{"business_name":"Java House","unknown":42}`)))

	targeting := c.Targeting()
	assert.Equal(t, "Java House", targeting.BusinessName)
	assert.Empty(t, targeting.BusinessTypes)
	assert.Nil(t, targeting.PayPerScan)
}

func TestObjectiveValid(t *testing.T) {
	assert.True(t, ObjectiveSocialCause.Valid())
	assert.False(t, CampaignObjective("lottery").Valid())
}

func TestIntersectsFold(t *testing.T) {
	assert.True(t, IntersectsFold([]string{"Restaurant", "Bar"}, []string{" bar "}))
	assert.False(t, IntersectsFold([]string{"Restaurant"}, []string{"salon"}))
	assert.False(t, IntersectsFold(nil, []string{"salon"}))
	assert.False(t, IntersectsFold([]string{""}, []string{""}))
}

func TestUserCountryHelpers(t *testing.T) {
	assert.True(t, (&User{CountryCode: "ng"}).IsNigerian())
	assert.True(t, (&User{CountryName: " Nigeria "}).IsNigerian())
	assert.False(t, (&User{CountryCode: "KE", CountryName: "Kenya"}).IsNigerian())
	assert.False(t, (*User)(nil).IsNigerian())

	kenyan := &User{CountryCode: "KE", CountryName: "Kenya"}
	assert.True(t, kenyan.InCountry("kenya"))
	assert.True(t, kenyan.InCountry("KE"))
	assert.False(t, kenyan.InCountry("UG"))
	assert.False(t, kenyan.InCountry(""))
}
