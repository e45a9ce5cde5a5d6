package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsRegisteredInOrder(t *testing.T) {
	require.Len(t, migrationsList, 3)

	assert.Equal(t, "000001_create_users_table", createUsersTableMigration().ID)
	assert.Equal(t, "000002_create_campaigns_table", createCampaignsTableMigration().ID)
	assert.Equal(t, "000003_create_scans_and_earnings_tables", createScansAndEarningsTablesMigration().ID)

	for i, m := range migrationsList {
		assert.NotNil(t, m.Migrate, m.ID)
		assert.NotNil(t, m.Rollback, m.ID)
		if i > 0 {
			assert.Less(t, migrationsList[i-1].ID, m.ID)
		}
	}
}
