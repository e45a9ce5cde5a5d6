package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/daya/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB creates an in-memory SQLite database with every domain table
// migrated. The connection is closed when the test finishes.
//
// SQLite has no row locks, so FOR UPDATE clauses are dropped by the driver.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Referral{},
		&models.Campaign{},
		&models.Scan{},
		&models.Earning{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB from gorm: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// UserOption customises a fixture user
type UserOption func(*models.User)

// WithBusinessName sets the user's business name
func WithBusinessName(name string) UserOption {
	return func(u *models.User) { u.BusinessName = name }
}

// WithAccountType sets the user's account type
func WithAccountType(accountType string) UserOption {
	return func(u *models.User) { u.AccountType = accountType }
}

// WithProfile sets the user's targeting profile
func WithProfile(profile models.UserProfile) UserOption {
	return func(u *models.User) { u.Profile = datatypes.NewJSONType(profile) }
}

// WithCountry sets the user's country code and name
func WithCountry(code, name string) UserOption {
	return func(u *models.User) {
		u.CountryCode = code
		u.CountryName = name
	}
}

// WithCreatedAt pins the registration time, which drives matching order
func WithCreatedAt(at time.Time) UserOption {
	return func(u *models.User) { u.CreatedAt = at }
}

// CreateUser inserts a user with the given role
func CreateUser(t *testing.T, db *gorm.DB, role models.UserRole, opts ...UserOption) *models.User {
	t.Helper()

	user := &models.User{
		Email:       fmt.Sprintf("%s-%s@daya.test", role, uuid.NewString()[:8]),
		Name:        string(role),
		Role:        role,
		CountryCode: "KE",
		CountryName: "Kenya",
		IsActive:    true,
		Profile:     datatypes.NewJSONType(models.UserProfile{}),
	}
	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// CampaignOption customises a fixture campaign
type CampaignOption func(*models.Campaign)

// WithStatus sets the campaign status
func WithStatus(status models.CampaignStatus) CampaignOption {
	return func(c *models.Campaign) { c.Status = status }
}

// WithDCD assigns the campaign to a DCD
func WithDCD(dcd *models.User) CampaignOption {
	return func(c *models.Campaign) {
		id := dcd.ID
		c.DCDID = &id
	}
}

// WithBudget sets budget and the matching remaining credit
func WithBudget(budget float64) CampaignOption {
	return func(c *models.Campaign) {
		c.Budget = decimal.NewFromFloat(budget)
		c.CampaignCredit = decimal.NewFromFloat(budget)
	}
}

// WithCredit overrides the remaining credit only
func WithCredit(credit float64) CampaignOption {
	return func(c *models.Campaign) { c.CampaignCredit = decimal.NewFromFloat(credit) }
}

// WithCostPerClick sets a fixed price per scan
func WithCostPerClick(cpc float64) CampaignOption {
	return func(c *models.Campaign) { c.CostPerClick = decimal.NewFromFloat(cpc) }
}

// WithScans sets the scan cap and current scan count
func WithScans(max, total int64) CampaignOption {
	return func(c *models.Campaign) {
		c.MaxScans = max
		c.TotalScans = total
	}
}

// WithObjective sets the campaign objective
func WithObjective(objective models.CampaignObjective) CampaignOption {
	return func(c *models.Campaign) { c.Objective = objective }
}

// WithExplainerVideo sets the explainer video URL
func WithExplainerVideo(url string) CampaignOption {
	return func(c *models.Campaign) { c.ExplainerVideoURL = url }
}

// WithTargeting replaces the targeting metadata
func WithTargeting(targeting models.CampaignTargeting) CampaignOption {
	return func(c *models.Campaign) { c.Metadata = datatypes.NewJSONType(targeting) }
}

// WithWindow sets the campaign start and end dates
func WithWindow(start, end string) CampaignOption {
	return func(c *models.Campaign) {
		targeting := c.Metadata.Data()
		targeting.StartDate = start
		targeting.EndDate = end
		c.Metadata = datatypes.NewJSONType(targeting)
	}
}

// WithCampaignCreatedAt pins the campaign creation time
func WithCampaignCreatedAt(at time.Time) CampaignOption {
	return func(c *models.Campaign) { c.CreatedAt = at }
}

// CreateCampaign inserts a campaign owned by client. Defaults describe an
// approved brand awareness campaign with 100 credit running today.
func CreateCampaign(t *testing.T, db *gorm.DB, client *models.User, opts ...CampaignOption) *models.Campaign {
	t.Helper()

	today := time.Now().UTC()
	campaign := &models.Campaign{
		ClientID:       client.ID,
		Name:           "Test campaign",
		Budget:         decimal.NewFromInt(100),
		CampaignCredit: decimal.NewFromInt(100),
		Objective:      models.ObjectiveBrandAwareness,
		Status:         models.CampaignStatusApproved,
		Metadata: datatypes.NewJSONType(models.CampaignTargeting{
			StartDate: today.AddDate(0, 0, -1).Format(models.DateLayout),
			EndDate:   today.AddDate(0, 0, 30).Format(models.DateLayout),
		}),
	}
	for _, opt := range opts {
		opt(campaign)
	}

	if err := db.Create(campaign).Error; err != nil {
		t.Fatalf("failed to create campaign: %v", err)
	}
	return campaign
}

// ReloadCampaign reads the campaign back from the database
func ReloadCampaign(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Campaign {
	t.Helper()

	var campaign models.Campaign
	if err := db.First(&campaign, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload campaign: %v", err)
	}
	return &campaign
}
