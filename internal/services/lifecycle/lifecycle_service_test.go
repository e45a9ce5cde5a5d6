package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/services/notification/notificationtest"
	"github.com/daya/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *notificationtest.Recorder, *models.User) {
	t.Helper()
	db := testutil.NewTestDB(t)
	recorder := notificationtest.NewRecorder()
	client := testutil.CreateUser(t, db, models.RoleClient)
	return NewService(db, recorder, decimal.NewFromFloat(0.20)), recorder, client
}

func TestMarkUnderReview(t *testing.T) {
	svc, recorder, client := newTestService(t)
	campaign := testutil.CreateCampaign(t, svc.db, client, testutil.WithStatus(models.CampaignStatusSubmitted))

	updated, err := svc.MarkUnderReview(context.Background(), campaign.ID)

	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusUnderReview, updated.Status)
	assert.Equal(t, models.CampaignStatusUnderReview, testutil.ReloadCampaign(t, svc.db, campaign.ID).Status)
	assert.Equal(t, []string{"admins_review_requested"}, recorder.Kinds())

	_, err = svc.MarkUnderReview(context.Background(), campaign.ID)
	assert.ErrorIs(t, err, ErrNotSubmitted)
}

func TestMarkUnderReviewLosingRaceDoesNotNotify(t *testing.T) {
	svc, recorder, client := newTestService(t)
	campaign := testutil.CreateCampaign(t, svc.db, client, testutil.WithStatus(models.CampaignStatusSubmitted))

	// An admin rejects the campaign between the read and the guarded update
	require.NoError(t, svc.db.Callback().Update().Before("gorm:update").Register("test:reject_first", func(db *gorm.DB) {
		_ = db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE campaigns SET status = ? WHERE id = ?", models.CampaignStatusRejected, campaign.ID).Error
	}))

	_, err := svc.MarkUnderReview(context.Background(), campaign.ID)

	assert.ErrorIs(t, err, ErrNotSubmitted)
	assert.Empty(t, recorder.Events())
	assert.Equal(t, models.CampaignStatusRejected, testutil.ReloadCampaign(t, svc.db, campaign.ID).Status)
}

func TestApprove(t *testing.T) {
	svc, recorder, client := newTestService(t)
	campaign := testutil.CreateCampaign(t, svc.db, client, testutil.WithStatus(models.CampaignStatusUnderReview))

	updated, err := svc.Approve(context.Background(), campaign.ID)

	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusApproved, updated.Status)
	assert.Equal(t, []string{"campaign_approved", "matching_requested"}, recorder.Kinds())
}

func TestApproveRequiresUnderReview(t *testing.T) {
	for _, status := range []models.CampaignStatus{
		models.CampaignStatusSubmitted,
		models.CampaignStatusApproved,
		models.CampaignStatusRejected,
		models.CampaignStatusLive,
		models.CampaignStatusCompleted,
	} {
		t.Run(string(status), func(t *testing.T) {
			svc, recorder, client := newTestService(t)
			campaign := testutil.CreateCampaign(t, svc.db, client, testutil.WithStatus(status))

			_, err := svc.Approve(context.Background(), campaign.ID)
			assert.ErrorIs(t, err, ErrNotUnderReview)
			assert.EqualError(t, err, "campaign is not under review")

			_, err = svc.Reject(context.Background(), campaign.ID, "no")
			assert.ErrorIs(t, err, ErrNotUnderReview)

			assert.Equal(t, status, testutil.ReloadCampaign(t, svc.db, campaign.ID).Status)
			assert.Empty(t, recorder.Events())
		})
	}
}

func TestReject(t *testing.T) {
	svc, recorder, client := newTestService(t)
	campaign := testutil.CreateCampaign(t, svc.db, client, testutil.WithStatus(models.CampaignStatusUnderReview))

	updated, err := svc.Reject(context.Background(), campaign.ID, "artwork missing")

	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusRejected, updated.Status)
	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "campaign_rejected", events[0].Kind)
	assert.Equal(t, "artwork missing", events[0].Reason)
}

func TestCompleteFromApproved(t *testing.T) {
	svc, recorder, client := newTestService(t)
	campaign := testutil.CreateCampaign(t, svc.db, client,
		testutil.WithStatus(models.CampaignStatusApproved),
		testutil.WithBudget(250),
	)

	updated, err := svc.Complete(context.Background(), campaign.ID)

	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	stored := testutil.ReloadCampaign(t, svc.db, campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	assert.Equal(t, []string{"venture_share_requested", "campaign_completed"}, recorder.Kinds())
	assert.True(t, recorder.Events()[0].Amount.Equal(decimal.NewFromInt(50)))
}

func TestCompleteRequiresApproved(t *testing.T) {
	svc, _, client := newTestService(t)
	campaign := testutil.CreateCampaign(t, svc.db, client, testutil.WithStatus(models.CampaignStatusLive))

	_, err := svc.Complete(context.Background(), campaign.ID)

	assert.ErrorIs(t, err, ErrNotApproved)
}

func TestUnknownCampaign(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Approve(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestAutoCompleteFiresOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	client := testutil.CreateUser(t, db, models.RoleClient)
	dcd := testutil.CreateUser(t, db, models.RoleDCD)
	campaign := testutil.CreateCampaign(t, db, client,
		testutil.WithStatus(models.CampaignStatusLive),
		testutil.WithDCD(dcd),
	)
	at := time.Now().UTC()

	first, err := AutoComplete(db, campaign.ID, at)
	require.NoError(t, err)
	second, err := AutoComplete(db, campaign.ID, at.Add(time.Minute))
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	stored := testutil.ReloadCampaign(t, db, campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.WithinDuration(t, at, *stored.CompletedAt, time.Second)
}

func TestAutoCompleteSkipsRejectedAndUnassigned(t *testing.T) {
	db := testutil.NewTestDB(t)
	client := testutil.CreateUser(t, db, models.RoleClient)
	dcd := testutil.CreateUser(t, db, models.RoleDCD)
	rejected := testutil.CreateCampaign(t, db, client,
		testutil.WithStatus(models.CampaignStatusRejected),
		testutil.WithDCD(dcd),
	)
	unassigned := testutil.CreateCampaign(t, db, client, testutil.WithStatus(models.CampaignStatusApproved))

	done, err := AutoComplete(db, rejected.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, done)

	done, err = AutoComplete(db, unassigned.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, done)
}

func TestActivate(t *testing.T) {
	db := testutil.NewTestDB(t)
	client := testutil.CreateUser(t, db, models.RoleClient)

	for _, tc := range []struct {
		status models.CampaignStatus
		want   bool
	}{
		{models.CampaignStatusSubmitted, true},
		{models.CampaignStatusApproved, true},
		{models.CampaignStatusActive, true},
		{models.CampaignStatusUnderReview, false},
		{models.CampaignStatusCompleted, false},
	} {
		campaign := testutil.CreateCampaign(t, db, client, testutil.WithStatus(tc.status))

		moved, err := Activate(db, campaign.ID)

		require.NoError(t, err)
		assert.Equal(t, tc.want, moved, tc.status)
		if tc.want {
			assert.Equal(t, models.CampaignStatusLive, testutil.ReloadCampaign(t, db, campaign.ID).Status)
		}
	}
}
