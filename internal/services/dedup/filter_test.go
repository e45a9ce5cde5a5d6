package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/daya/backend/internal/models"
	"github.com/daya/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	filter   *Filter
	dcd      *models.User
	campaign *models.Campaign
	base     time.Time
}

func newFixture(t *testing.T, opts ...testutil.CampaignOption) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	client := testutil.CreateUser(t, db, models.RoleClient)
	dcd := testutil.CreateUser(t, db, models.RoleDCD)
	opts = append([]testutil.CampaignOption{
		testutil.WithDCD(dcd),
		testutil.WithStatus(models.CampaignStatusLive),
	}, opts...)

	return &fixture{
		db:       db,
		filter:   NewFilter(DefaultWindows()),
		dcd:      dcd,
		campaign: testutil.CreateCampaign(t, db, client, opts...),
		base:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) scan(t *testing.T, fingerprint, ip string, offset time.Duration) *models.Scan {
	t.Helper()
	campaignID := f.campaign.ID
	at := f.base.Add(offset)
	scan := &models.Scan{
		DCDID:             f.dcd.ID,
		CampaignID:        &campaignID,
		ScannedAt:         at,
		DeviceFingerprint: fingerprint,
		IPAddress:         ip,
		Geo:               datatypes.NewJSONType(models.ScanGeo{IPAddress: ip}),
	}
	scan.CreatedAt = at
	require.NoError(t, f.db.Create(scan).Error)
	return scan
}

func (f *fixture) earn(t *testing.T, scan *models.Scan) {
	t.Helper()
	scanID := scan.ID
	campaignID := f.campaign.ID
	require.NoError(t, f.db.Create(&models.Earning{
		UserID:        f.dcd.ID,
		CampaignID:    &campaignID,
		ScanID:        &scanID,
		Type:          models.EarningTypeScan,
		RecipientRole: models.RecipientDCD,
		Amount:        decimal.NewFromInt(1),
		Status:        models.EarningStatusPending,
	}).Error)
}

func (f *fixture) evaluate(t *testing.T, scan *models.Scan) Decision {
	t.Helper()
	decision, err := f.filter.Evaluate(context.Background(), f.db, scan, f.campaign)
	require.NoError(t, err)
	return decision
}

func TestAcceptsFreshScan(t *testing.T) {
	f := newFixture(t)
	scan := f.scan(t, "fp-1", "10.0.0.1", 0)

	decision := f.evaluate(t, scan)

	assert.True(t, decision.Accepted)
	assert.Empty(t, decision.Reason)
}

func TestAlreadySettled(t *testing.T) {
	f := newFixture(t)
	scan := f.scan(t, "fp-1", "10.0.0.1", 0)
	f.earn(t, scan)

	assert.Equal(t, ReasonAlreadySettled, f.evaluate(t, scan).Reason)
}

func TestExhaustedCampaignIsCompleted(t *testing.T) {
	f := newFixture(t, testutil.WithCredit(0))
	scan := f.scan(t, "fp-1", "10.0.0.1", 0)

	decision := f.evaluate(t, scan)

	assert.False(t, decision.Accepted)
	assert.Equal(t, ReasonCampaignExhausted, decision.Reason)
	assert.True(t, decision.CampaignCompleted)

	stored := testutil.ReloadCampaign(t, f.db, f.campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
}

func TestScanCapReached(t *testing.T) {
	f := newFixture(t, testutil.WithScans(2, 2))
	scan := f.scan(t, "fp-1", "10.0.0.1", 0)

	decision := f.evaluate(t, scan)

	assert.Equal(t, ReasonCampaignExhausted, decision.Reason)
	assert.True(t, decision.CampaignCompleted)
}

func TestDCDMismatch(t *testing.T) {
	f := newFixture(t)
	scan := f.scan(t, "fp-1", "10.0.0.1", 0)
	scan.DCDID = uuid.New()

	assert.Equal(t, ReasonDCDMismatch, f.evaluate(t, scan).Reason)
}

func TestFingerprintLifetime(t *testing.T) {
	f := newFixture(t)
	first := f.scan(t, "fp-1", "10.0.0.1", 0)
	f.earn(t, first)

	second := f.scan(t, "fp-1", "10.0.0.2", 48*time.Hour)

	assert.Equal(t, ReasonFingerprintLifetime, f.evaluate(t, second).Reason)
}

func TestIPLifetime(t *testing.T) {
	f := newFixture(t)
	first := f.scan(t, "fp-1", "10.0.0.1", 0)
	f.earn(t, first)

	second := f.scan(t, "fp-2", "10.0.0.1", 48*time.Hour)

	assert.Equal(t, ReasonIPLifetime, f.evaluate(t, second).Reason)
}

func TestFingerprintWindow(t *testing.T) {
	f := newFixture(t)
	f.scan(t, "fp-1", "10.0.0.1", 0)

	second := f.scan(t, "fp-1", "10.0.0.2", 5*time.Minute)

	assert.Equal(t, ReasonFingerprintWindow, f.evaluate(t, second).Reason)
}

func TestFingerprintWindowExpires(t *testing.T) {
	f := newFixture(t)
	f.scan(t, "fp-1", "10.0.0.1", 0)

	later := f.scan(t, "fp-1", "10.0.0.2", 31*time.Minute)

	assert.True(t, f.evaluate(t, later).Accepted)
}

func TestIPWindows(t *testing.T) {
	f := newFixture(t)
	f.scan(t, "fp-1", "10.0.0.1", 0)

	withinTen := f.scan(t, "fp-2", "10.0.0.1", 9*time.Minute)
	assert.Equal(t, ReasonIPWindow, f.evaluate(t, withinTen).Reason)

	f.scan(t, "fp-3", "10.0.0.9", 0)
	outside := f.scan(t, "fp-4", "10.0.0.9", 11*time.Minute)
	assert.True(t, f.evaluate(t, outside).Accepted)
}

func TestIPBurstWindowWhenIPWindowIsShorter(t *testing.T) {
	f := newFixture(t)
	f.filter = NewFilter(Windows{Fingerprint: time.Minute, IP: time.Second, IPBurst: 2 * time.Minute})
	f.scan(t, "fp-1", "10.0.0.1", 0)

	second := f.scan(t, "fp-2", "10.0.0.1", 90*time.Second)

	assert.Equal(t, ReasonIPBurst, f.evaluate(t, second).Reason)
}

func TestEarlierScanOnlyCounts(t *testing.T) {
	f := newFixture(t)
	first := f.scan(t, "fp-1", "10.0.0.1", 0)
	f.scan(t, "fp-1", "10.0.0.1", 5*time.Minute)

	// The later duplicate must not block the original
	assert.True(t, f.evaluate(t, first).Accepted)
}

func TestSameTimestampTieBreaksOnID(t *testing.T) {
	f := newFixture(t)
	a := f.scan(t, "fp-1", "10.0.0.1", 0)
	b := f.scan(t, "fp-1", "10.0.0.1", 0)

	lower, higher := a, b
	if b.ID.String() < a.ID.String() {
		lower, higher = b, a
	}

	assert.True(t, f.evaluate(t, lower).Accepted)
	assert.Equal(t, ReasonFingerprintWindow, f.evaluate(t, higher).Reason)
}

func TestOtherCampaignsDoNotInterfere(t *testing.T) {
	f := newFixture(t)
	other := testutil.CreateCampaign(t, f.db, testutil.CreateUser(t, f.db, models.RoleClient), testutil.WithDCD(f.dcd))
	otherID := other.ID
	prior := &models.Scan{DCDID: f.dcd.ID, CampaignID: &otherID, ScannedAt: f.base, DeviceFingerprint: "fp-1", IPAddress: "10.0.0.1"}
	prior.CreatedAt = f.base
	require.NoError(t, f.db.Create(prior).Error)

	scan := f.scan(t, "fp-1", "10.0.0.1", time.Minute)

	assert.True(t, f.evaluate(t, scan).Accepted)
}

func TestScanIPIgnoresReportedIP(t *testing.T) {
	scan := &models.Scan{Geo: datatypes.NewJSONType(models.ScanGeo{IPAddress: "41.90.1.1"})}
	assert.Empty(t, ScanIP(scan))

	scan.IPAddress = "10.0.0.1"
	assert.Equal(t, "10.0.0.1", ScanIP(scan))
}

func TestNewFilterFillsZeroWindows(t *testing.T) {
	f := NewFilter(Windows{IP: 15 * time.Minute})
	assert.Equal(t, 30*time.Minute, f.windows.Fingerprint)
	assert.Equal(t, 15*time.Minute, f.windows.IP)
	assert.Equal(t, 2*time.Minute, f.windows.IPBurst)
}
