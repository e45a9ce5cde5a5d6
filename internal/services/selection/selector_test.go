package selection

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetActiveCampaignForDCD(t *testing.T) {
	db := testutil.NewTestDB(t)
	client := testutil.CreateUser(t, db, models.RoleClient)
	dcd := testutil.CreateUser(t, db, models.RoleDCD)
	selector := NewSelector(db, time.UTC)
	selector.now = func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) }

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	live := func(created time.Time, start, end string, opts ...testutil.CampaignOption) *models.Campaign {
		opts = append([]testutil.CampaignOption{
			testutil.WithDCD(dcd),
			testutil.WithStatus(models.CampaignStatusLive),
			testutil.WithWindow(start, end),
			testutil.WithCampaignCreatedAt(created),
		}, opts...)
		return testutil.CreateCampaign(t, db, client, opts...)
	}

	// Oldest but finished yesterday
	live(base, "2025-06-01", "2025-06-14")
	// Created next and in window but out of credit
	live(base.Add(time.Hour), "2025-06-10", "2025-06-20", testutil.WithCredit(0))
	// Malformed window
	live(base.Add(2*time.Hour), "soon", "2025-06-20")
	want := live(base.Add(3*time.Hour), "2025-06-15", "2025-06-15")
	live(base.Add(4*time.Hour), "2025-06-01", "2025-06-30")

	got, err := selector.GetActiveCampaignForDCD(context.Background(), dcd)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
}

func TestGetActiveCampaignForDCDIgnoresOtherStatuses(t *testing.T) {
	db := testutil.NewTestDB(t)
	client := testutil.CreateUser(t, db, models.RoleClient)
	dcd := testutil.CreateUser(t, db, models.RoleDCD)
	selector := NewSelector(db, nil)

	for _, status := range []models.CampaignStatus{
		models.CampaignStatusSubmitted,
		models.CampaignStatusUnderReview,
		models.CampaignStatusActive,
		models.CampaignStatusCompleted,
		models.CampaignStatusRejected,
	} {
		testutil.CreateCampaign(t, db, client, testutil.WithDCD(dcd), testutil.WithStatus(status))
	}

	got, err := selector.GetActiveCampaignForDCD(context.Background(), dcd)
	require.NoError(t, err)
	assert.Nil(t, got)

	approved := testutil.CreateCampaign(t, db, client, testutil.WithDCD(dcd), testutil.WithStatus(models.CampaignStatusApproved))
	got, err = selector.GetActiveCampaignForDCD(context.Background(), dcd)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, approved.ID, got.ID)
}

func TestGetActiveCampaignForNonDCD(t *testing.T) {
	db := testutil.NewTestDB(t)
	client := testutil.CreateUser(t, db, models.RoleClient)
	testutil.CreateCampaign(t, db, client, testutil.WithDCD(client), testutil.WithStatus(models.CampaignStatusLive))

	got, err := NewSelector(db, time.UTC).GetActiveCampaignForDCD(context.Background(), client)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = NewSelector(db, time.UTC).GetActiveCampaignForDCD(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetActiveCampaignUsesConfiguredTimezone(t *testing.T) {
	db := testutil.NewTestDB(t)
	client := testutil.CreateUser(t, db, models.RoleClient)
	dcd := testutil.CreateUser(t, db, models.RoleDCD)
	testutil.CreateCampaign(t, db, client,
		testutil.WithDCD(dcd),
		testutil.WithStatus(models.CampaignStatusLive),
		testutil.WithWindow("2025-06-16", "2025-06-20"),
	)

	nairobi, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)

	// 22:30 UTC on the 15th is already the 16th in Nairobi
	at := func() time.Time { return time.Date(2025, 6, 15, 22, 30, 0, 0, time.UTC) }

	utc := NewSelector(db, time.UTC)
	utc.now = at
	got, err := utc.GetActiveCampaignForDCD(context.Background(), dcd)
	require.NoError(t, err)
	assert.Nil(t, got)

	local := NewSelector(db, nairobi)
	local.now = at
	got, err = local.GetActiveCampaignForDCD(context.Background(), dcd)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
