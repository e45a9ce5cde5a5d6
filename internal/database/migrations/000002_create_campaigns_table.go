package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createCampaignsTableMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_campaigns_table",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS campaigns (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					client_id UUID NOT NULL REFERENCES users(id),
					dcd_id UUID REFERENCES users(id),
					name VARCHAR(255),
					budget DECIMAL(20,2) NOT NULL DEFAULT 0,
					cost_per_click DECIMAL(20,2) NOT NULL DEFAULT 0,
					campaign_credit DECIMAL(20,2) NOT NULL DEFAULT 0 CHECK (campaign_credit >= 0),
					spent_amount DECIMAL(20,2) NOT NULL DEFAULT 0,
					max_scans BIGINT NOT NULL DEFAULT 0,
					total_scans BIGINT NOT NULL DEFAULT 0,
					campaign_objective VARCHAR(50) NOT NULL,
					explainer_video_url TEXT,
					metadata JSONB NOT NULL DEFAULT '{}',
					status VARCHAR(20) NOT NULL DEFAULT 'submitted',
					completed_at TIMESTAMP WITH TIME ZONE,
					qr_code_url TEXT,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX IF NOT EXISTS idx_campaigns_client_id ON campaigns(client_id);
				CREATE INDEX IF NOT EXISTS idx_campaigns_dcd_status ON campaigns(dcd_id, status, created_at);
				CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
				CREATE INDEX IF NOT EXISTS idx_campaigns_deleted_at ON campaigns(deleted_at);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS campaigns").Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createCampaignsTableMigration())
}
